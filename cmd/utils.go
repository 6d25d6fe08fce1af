package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/config"
)

// newClient builds a backend client from the configuration.
func newClient(cfg *config.Config) (*backend.Client, error) {
	var opts []backend.Option
	if cfg.RequestTimeout.Duration > 0 {
		opts = append(opts, backend.WithTimeout(cfg.RequestTimeout.Duration))
	}
	client, err := backend.New(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return client, nil
}

// loadClient loads the configuration at configPath and returns a client
// for the configured backend.
func loadClient(configPath string) (*config.Config, *backend.Client, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// displayWithPager displays content using a pager
func displayWithPager(content string) error {
	pagerCmd := os.Getenv("PAGER")
	if pagerCmd == "" {
		for _, pager := range []string{"less", "more"} {
			if _, err := exec.LookPath(pager); err == nil {
				pagerCmd = pager
				break
			}
		}
	}

	if pagerCmd == "" {
		fmt.Print(content)
		return nil
	}

	// -F quits when the output fits on one screen
	args := []string{}
	if strings.Contains(pagerCmd, "less") {
		args = []string{"-R", "-F", "-X"}
	}

	cmd := exec.Command(pagerCmd, args...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
