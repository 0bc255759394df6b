// Command wallet manages labeled accounts outside the node process and
// can query a running node's balance endpoint.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"golang.org/x/term"

	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/walletkit"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "wallet:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  wallet -wallet PATH create LABEL           create a new account")
	fmt.Println("  wallet -wallet PATH list                   list accounts")
	fmt.Println("  wallet -wallet PATH show LABEL              show one account")
	fmt.Println("  wallet -wallet PATH delete LABEL             delete an account")
	fmt.Println("  wallet -wallet PATH -node HOST:PORT balance LABEL   query a node's balance for LABEL")
}

func run(args []string) error {
	walletPath := flag.String("wallet", "wallet.json", "path to the wallet file")
	nodeAddr := flag.String("node", "", "host:port of a node to query (balance command)")
	if err := flag.CommandLine.Parse(args); err != nil {
		return err
	}

	rest := flag.Args()
	if len(rest) < 1 {
		printUsage()
		return fmt.Errorf("no command specified")
	}

	w, err := walletkit.Open(*walletPath)
	if err != nil {
		return err
	}

	switch rest[0] {
	case "create":
		return cmdCreate(w, rest[1:])
	case "list":
		return cmdList(w)
	case "show":
		return cmdShow(w, rest[1:])
	case "delete":
		return cmdDelete(w, rest[1:])
	case "balance":
		return cmdBalance(w, rest[1:], *nodeAddr)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func cmdCreate(w *walletkit.Wallet, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("usage: wallet create LABEL")
	}
	label := rest[0]
	passphrase, err := readPassphrase(fmt.Sprintf("Passphrase to encrypt %q: ", label))
	if err != nil {
		return err
	}
	account, err := w.CreateAccount(label, passphrase)
	if err != nil {
		return err
	}
	fmt.Printf("created %q\n  public key: %s\n  address:    %s\n", account.Label, account.PublicKeyHex, account.Address)
	return nil
}

func cmdList(w *walletkit.Wallet) error {
	for _, account := range w.ListAccounts() {
		fmt.Printf("%-20s %s\n", account.Label, account.Address)
	}
	return nil
}

func cmdShow(w *walletkit.Wallet, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("usage: wallet show LABEL")
	}
	account, err := w.GetAccount(rest[0])
	if err != nil {
		return err
	}
	fmt.Printf("label:      %s\npublic key: %s\naddress:    %s\n", account.Label, account.PublicKeyHex, account.Address)
	return nil
}

func cmdDelete(w *walletkit.Wallet, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("usage: wallet delete LABEL")
	}
	return w.DeleteAccount(rest[0])
}

func cmdBalance(w *walletkit.Wallet, rest []string, nodeAddr string) error {
	if len(rest) != 1 {
		return fmt.Errorf("usage: wallet -node HOST:PORT balance LABEL")
	}
	if nodeAddr == "" {
		return fmt.Errorf("-node HOST:PORT is required")
	}
	account, err := w.GetAccount(rest[0])
	if err != nil {
		return err
	}
	host, port, err := net.SplitHostPort(nodeAddr)
	if err != nil {
		return fmt.Errorf("wallet: invalid -node %q: %w", nodeAddr, err)
	}
	client := netclient.New()
	balance, err := client.FetchBalance(context.Background(), netclient.Endpoint{Host: host, Port: port}, account.PublicKeyHex)
	if err != nil {
		return err
	}
	fmt.Println(balance)
	return nil
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
