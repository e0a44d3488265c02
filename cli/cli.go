// Package cli implements the ledgerd command-line front end: one
// subcommand per node operation (create a chain, manage wallets, send
// value, start the P2P server). It wires the config, store, blockchain,
// wallet, and network packages together; none of them import it.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pdkilimba/ledgerd/blockchain"
	"github.com/pdkilimba/ledgerd/config"
	"github.com/pdkilimba/ledgerd/network"
	"github.com/pdkilimba/ledgerd/store"
	"github.com/pdkilimba/ledgerd/wallet"
)

// CommandLine dispatches os.Args to the node operation it names.
type CommandLine struct {
	Logger *zap.Logger
}

func (cli *CommandLine) logger() *zap.Logger {
	if cli.Logger == nil {
		return zap.NewNop()
	}
	return cli.Logger
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println(" createblockchain -address ADDRESS   create a chain, paying its genesis reward to ADDRESS")
	fmt.Println(" createwallet                        create a new wallet")
	fmt.Println(" getbalance -address ADDRESS          print the balance of ADDRESS")
	fmt.Println(" listaddresses                        list every address in the wallet namespace")
	fmt.Println(" printchain                           print every block from tip to genesis")
	fmt.Println(" reindexutxo                          rebuild the UTXO set from the chain")
	fmt.Println(" send -from FROM -to TO -amount AMOUNT [-mine]   send value, -mine mines locally instead of broadcasting")
	fmt.Println(" startnode [-miner ADDRESS]           start the P2P server, -miner enables mining to ADDRESS")
}

// Run parses os.Args and executes the named subcommand. It reads node
// identity and paths from the environment via config.Load.
func (cli *CommandLine) Run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("missing subcommand")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	getBalanceCmd := flag.NewFlagSet("getbalance", flag.ExitOnError)
	createBlockchainCmd := flag.NewFlagSet("createblockchain", flag.ExitOnError)
	sendCmd := flag.NewFlagSet("send", flag.ExitOnError)
	printChainCmd := flag.NewFlagSet("printchain", flag.ExitOnError)
	createWalletCmd := flag.NewFlagSet("createwallet", flag.ExitOnError)
	listAddressesCmd := flag.NewFlagSet("listaddresses", flag.ExitOnError)
	reindexUTXOCmd := flag.NewFlagSet("reindexutxo", flag.ExitOnError)
	startNodeCmd := flag.NewFlagSet("startnode", flag.ExitOnError)

	getBalanceAddress := getBalanceCmd.String("address", "", "wallet address to get the balance of")
	createBlockchainAddress := createBlockchainCmd.String("address", "", "wallet address to receive the genesis reward")
	sendFrom := sendCmd.String("from", "", "source wallet address")
	sendTo := sendCmd.String("to", "", "destination wallet address")
	sendAmount := sendCmd.Int("amount", 0, "amount to send")
	sendMine := sendCmd.Bool("mine", false, "mine the transaction locally instead of broadcasting it")
	startNodeMiner := startNodeCmd.String("miner", "", "enable mining, paying rewards to this address")

	switch os.Args[1] {
	case "getbalance":
		if err := getBalanceCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		if *getBalanceAddress == "" {
			getBalanceCmd.Usage()
			return fmt.Errorf("getbalance: -address is required")
		}
		return cli.getBalance(cfg, *getBalanceAddress)

	case "createblockchain":
		if err := createBlockchainCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		if *createBlockchainAddress == "" {
			createBlockchainCmd.Usage()
			return fmt.Errorf("createblockchain: -address is required")
		}
		return cli.createBlockchain(cfg, *createBlockchainAddress)

	case "printchain":
		if err := printChainCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		return cli.printChain(cfg)

	case "createwallet":
		if err := createWalletCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		return cli.createWallet(cfg)

	case "listaddresses":
		if err := listAddressesCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		return cli.listAddresses(cfg)

	case "reindexutxo":
		if err := reindexUTXOCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		return cli.reindexUTXO(cfg)

	case "send":
		if err := sendCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		if *sendFrom == "" || *sendTo == "" || *sendAmount <= 0 {
			sendCmd.Usage()
			return fmt.Errorf("send: -from, -to, and a positive -amount are required")
		}
		return cli.send(cfg, *sendFrom, *sendTo, *sendAmount, *sendMine)

	case "startnode":
		if err := startNodeCmd.Parse(os.Args[2:]); err != nil {
			return err
		}
		return cli.startNode(cfg, *startNodeMiner)

	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", os.Args[1])
	}
}

func (cli *CommandLine) openChain(cfg config.Config) (*blockchain.Blockchain, store.KVStore, error) {
	db, err := store.Open(cfg.NamespacePath("chain"))
	if err != nil {
		return nil, nil, err
	}
	chain, err := blockchain.Open(db, cli.logger())
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return chain, db, nil
}

func (cli *CommandLine) openWallets(cfg config.Config) (*wallet.Wallets, store.KVStore, error) {
	db, err := store.Open(cfg.NamespacePath("wallet"))
	if err != nil {
		return nil, nil, err
	}
	ws, err := wallet.Open(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return ws, db, nil
}

func (cli *CommandLine) createBlockchain(cfg config.Config, address string) error {
	if !wallet.ValidateAddress(address) {
		return wallet.ErrInvalidAddress
	}

	db, err := store.Open(cfg.NamespacePath("chain"))
	if err != nil {
		return err
	}
	defer db.Close()

	chain, err := blockchain.Create(db, address, cli.logger())
	if err != nil {
		return err
	}

	utxoDB, err := store.Open(cfg.NamespacePath("utxo"))
	if err != nil {
		return err
	}
	defer utxoDB.Close()

	utxoSet := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())
	if err := utxoSet.Reindex(); err != nil {
		return err
	}

	fmt.Println("Finished creating blockchain!")
	return nil
}

func (cli *CommandLine) getBalance(cfg config.Config, address string) error {
	if !wallet.ValidateAddress(address) {
		return wallet.ErrInvalidAddress
	}
	pubKeyHash, err := wallet.PubKeyHashFromAddress(address)
	if err != nil {
		return err
	}

	chain, db, err := cli.openChain(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	utxoDB, err := store.Open(cfg.NamespacePath("utxo"))
	if err != nil {
		return err
	}
	defer utxoDB.Close()

	utxoSet := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())
	outs, err := utxoSet.FindUTXO(pubKeyHash)
	if err != nil {
		return err
	}

	var balance int
	for _, out := range outs {
		balance += int(out.Value)
	}
	fmt.Printf("Balance of %s: %d\n", address, balance)
	return nil
}

func (cli *CommandLine) send(cfg config.Config, from, to string, amount int, mineNow bool) error {
	if !wallet.ValidateAddress(from) {
		return fmt.Errorf("invalid from address: %w", wallet.ErrInvalidAddress)
	}
	if !wallet.ValidateAddress(to) {
		return fmt.Errorf("invalid to address: %w", wallet.ErrInvalidAddress)
	}

	chain, chainDB, err := cli.openChain(cfg)
	if err != nil {
		return err
	}
	defer chainDB.Close()

	utxoDB, err := store.Open(cfg.NamespacePath("utxo"))
	if err != nil {
		return err
	}
	defer utxoDB.Close()
	utxoSet := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())

	wallets, walletDB, err := cli.openWallets(cfg)
	if err != nil {
		return err
	}
	defer walletDB.Close()

	w, ok := wallets.GetWallet(from)
	if !ok {
		return fmt.Errorf("no wallet found for address %s", from)
	}

	tx, err := blockchain.NewUTXOTransaction(w, to, amount, utxoSet)
	if err != nil {
		return err
	}

	if mineNow {
		coinbase, err := blockchain.NewCoinbaseTX(from, "")
		if err != nil {
			return err
		}
		block, err := chain.MineBlock([]*blockchain.Transaction{coinbase, tx})
		if err != nil {
			return err
		}
		if err := utxoSet.Update(block); err != nil {
			return err
		}
	} else {
		utxo := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())
		n := network.NewNode(cfg.NodeAddress(), "", chain, utxo, []string{network.CentralNodeAddress}, cli.logger())
		peers := n.KnownNodes()
		if len(peers) == 0 {
			return errors.New("send: no known peers to broadcast to")
		}
		if err := n.SendTx(peers[0], tx); err != nil {
			return err
		}
	}

	fmt.Println("Success!")
	return nil
}

func (cli *CommandLine) reindexUTXO(cfg config.Config) error {
	chain, chainDB, err := cli.openChain(cfg)
	if err != nil {
		return err
	}
	defer chainDB.Close()

	utxoDB, err := store.Open(cfg.NamespacePath("utxo"))
	if err != nil {
		return err
	}
	defer utxoDB.Close()

	utxoSet := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())
	if err := utxoSet.Reindex(); err != nil {
		return err
	}

	count, err := utxoSet.CountTransactions()
	if err != nil {
		return err
	}
	fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)
	return nil
}

func (cli *CommandLine) listAddresses(cfg config.Config) error {
	wallets, db, err := cli.openWallets(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, address := range wallets.GetAllAddresses() {
		fmt.Println(address)
	}
	return nil
}

func (cli *CommandLine) createWallet(cfg config.Config) error {
	wallets, db, err := cli.openWallets(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	address, err := wallets.CreateWallet()
	if err != nil {
		return err
	}
	fmt.Printf("New wallet created with address: %s\n", address)
	return nil
}

func (cli *CommandLine) printChain(cfg config.Config) error {
	chain, db, err := cli.openChain(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	iter := chain.Iterator()
	for {
		block, err := iter.Next()
		if err != nil {
			return err
		}

		fmt.Printf("Prev. hash: %x\n", block.PrevHash)
		fmt.Printf("Hash: %x\n", block.Hash)
		fmt.Printf("PoW: %v\n", blockchain.NewProof(block).Validate())
		for _, tx := range block.Transactions {
			fmt.Println(tx.String())
		}
		fmt.Println()

		if len(block.PrevHash) == 0 {
			break
		}
	}
	return nil
}

func (cli *CommandLine) startNode(cfg config.Config, minerAddress string) error {
	if minerAddress != "" && !wallet.ValidateAddress(minerAddress) {
		return fmt.Errorf("invalid miner address: %w", wallet.ErrInvalidAddress)
	}

	chain, chainDB, err := cli.openChain(cfg)
	if err != nil {
		return err
	}
	defer chainDB.Close()

	utxoDB, err := store.Open(cfg.NamespacePath("utxo"))
	if err != nil {
		return err
	}
	defer utxoDB.Close()
	utxoSet := blockchain.NewUTXOSet(chain, utxoDB, cli.logger())

	n := network.NewNode(cfg.NodeAddress(), minerAddress, chain, utxoSet, []string{network.CentralNodeAddress}, cli.logger())

	fmt.Printf("Starting node %s\n", cfg.NodeAddress())
	if minerAddress != "" {
		fmt.Printf("Mining is on. Rewards go to %s\n", minerAddress)
	}

	server := network.NewServer(n, cfg.MetricsAddr)
	return server.Run(context.Background(), chainDB)
}
