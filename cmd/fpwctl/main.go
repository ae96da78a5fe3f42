package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/forgotpw/secretsvc/internal/cli"
)

func main() {

	endpoint := flag.String("endpoint", "http://127.0.0.1:8080", "secrets service base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "fpwctl: a command is required")
		os.Exit(2)
	}

	app := cli.NewApp(*endpoint)
	if err := app.Run(context.Background(), args[0], args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
