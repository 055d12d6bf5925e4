// Command ragcli asks retrieval-grounded questions for one owner from the terminal. Nothing is
// written to the message log.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/suPer8Hu/rag-chat/internal/app"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/db"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

func main() {
	owner := flag.Uint64("user", 1, "owner id whose documents are searched")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("open db", "error", err)
	}
	clients, err := app.WireClients(ctx, log, cfg, gdb, false)
	if err != nil {
		log.Fatal("wire clients", "error", err)
	}
	defer clients.Close()
	svcs, err := app.WireServices(log, cfg, gdb, clients)
	if err != nil {
		log.Fatal("wire services", "error", err)
	}

	if err := repl(ctx, os.Stdin, os.Stdout, svcs.Chat, *owner); err != nil {
		log.Error("ragcli", "error", err)
	}
}

type asker interface {
	Ask(ctx context.Context, owner uint64, text string) (string, error)
}

var _ asker = (*chat.Service)(nil)

// repl reads questions line by line until EOF or exit/quit. Blank lines re-prompt.
func repl(ctx context.Context, in io.Reader, out io.Writer, a asker, owner uint64) error {
	fmt.Fprintln(out, "Ask a question (type exit or quit to leave).")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch strings.ToLower(q) {
		case "exit", "quit":
			fmt.Fprintln(out, "bye")
			return nil
		case "":
			fmt.Fprintln(out, "please enter a question")
			continue
		}

		reply, err := a.Ask(ctx, owner, q)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply)
	}
}
