package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/verifier"
	"golang.org/x/term"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "download timeout")
	flag.Parse()

	link := strings.Join(flag.Args(), " ")
	if link == "" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Print("Verifier link: ")
		}
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "no link given")
			os.Exit(2)
		}
		link = line
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	r, err := verifier.New(nil).Check(ctx, link)
	verifier.Report(os.Stdout, r, err, term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		os.Exit(1)
	}
}
