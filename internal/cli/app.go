// Package cli implements fpwctl, the operator tool for the secrets service.
// It mints service tokens, issues authorized-request grants and exercises the
// grant-bound store and retrieve endpoints against a running instance.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/forgotpw/secretsvc/internal/server/auth"
)

const usage = `Usage: fpwctl <command> [flags]

Commands:
  token        mint a service token for grant issuance
  issue-grant  create an authorized-request grant for a user token
  store        store a secret through an existing grant
  retrieve     retrieve a secret through an existing grant
`

type App struct {
	endpoint string
	client   *http.Client
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(endpoint string) *App {
	return &App{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
}

// Run dispatches the subcommand. args is os.Args[2:], the flags after the
// command name.
func (a *App) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "token":
		return a.runToken(args)
	case "issue-grant":
		return a.runIssueGrant(ctx, args)
	case "store":
		return a.runStore(ctx, args)
	case "retrieve":
		return a.runRetrieve(ctx, args)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *App) runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	key := fs.String("key", "", "HMAC key shared with the server")
	service := fs.String("service", "fpwctl", "service name to embed in the token")
	ttl := fs.Duration("ttl", time.Hour, "token validity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("token: -key is required")
	}

	token, err := auth.GenerateToken(*service, []byte(*key), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *App) runIssueGrant(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("issue-grant", flag.ContinueOnError)
	key := fs.String("key", "", "HMAC key shared with the server")
	service := fs.String("service", "fpwctl", "service name to embed in the token")
	userToken := fs.String("user-token", "", "user token the grant binds to")
	application := fs.String("application", "", "application the grant binds to")
	firstTime := fs.Bool("first-time", false, "mark the grant as a first-time store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" || *userToken == "" || *application == "" {
		return fmt.Errorf("issue-grant: -key, -user-token and -application are required")
	}

	token, err := auth.GenerateToken(*service, []byte(*key), time.Minute)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"userToken":   *userToken,
		"application": *application,
		"isFirstTime": *firstTime,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/v1/arid", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return a.do(req, http.StatusCreated)
}

func (a *App) runStore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	arid := fs.String("arid", "", "authorized request id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.aridOrPrompt(*arid)
	if err != nil {
		return err
	}

	secret, err := GetSecret(a.out)
	if err != nil {
		return err
	}
	defer wipe(secret)

	body, _ := json.Marshal(map[string]string{"secret": string(secret)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		a.endpoint+"/v1/arid/"+id+"/secret", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return a.do(req, http.StatusOK)
}

func (a *App) runRetrieve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ContinueOnError)
	arid := fs.String("arid", "", "authorized request id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.aridOrPrompt(*arid)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.endpoint+"/v1/arid/"+id+"/secret", http.NoBody)
	if err != nil {
		return err
	}

	return a.do(req, http.StatusOK)
}

// do executes the request and prints the response body. A status other than
// want is reported as an error, with the body still printed so the operator
// sees the server's message.
func (a *App) do(req *http.Request, want int) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(bytes.TrimSpace(body)))

	if resp.StatusCode != want {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

func (a *App) aridOrPrompt(arid string) (string, error) {
	if arid != "" {
		return arid, nil
	}
	id, err := GetSimpleText(a.reader, "Authorized request id", a.out)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("an authorized request id is required")
	}
	return id, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
