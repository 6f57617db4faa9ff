// Package cmd implements the didctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-did-sdk/config"
	"github.com/pilacorp/go-did-sdk/service"
)

// Version is set at build time
var Version = "0.1.0"

type globalOptions struct {
	configPath   string
	outputFormat string
}

// NewRootCmd builds the didctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "didctl",
		Short: "Generate, resolve and verify decentralized identifiers",
		Long: `didctl builds DID Documents for did:key and did:web identities,
resolves them, signs messages with their keys and verifies signatures
against their authentication keys.

Configuration is read from an optional YAML file (--config) and the
DID_* environment variables.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "json", "Output format: json, yaml")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newResolveCmd(opts),
		newSignCmd(opts),
		newVerifyCmd(opts),
	)

	return root
}

// load reads the configuration and builds a logger writing to the
// command's error stream.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return cfg, logger, nil
}

func (o *globalOptions) newService(cmd *cobra.Command) (*service.Service, error) {
	cfg, logger, err := o.load(cmd)
	if err != nil {
		return nil, err
	}

	svc, err := service.FromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize service: %w", err)
	}

	return svc, nil
}

func (o *globalOptions) print(w io.Writer, data any) error {
	switch o.outputFormat {
	case "json":
		return outputJSON(w, data)
	case "yaml":
		return outputYAML(w, data)
	default:
		return fmt.Errorf("unknown output format %q", o.outputFormat)
	}
}

func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// outputYAML renders data through its JSON form so field names follow the
// json tags of the DID model.
func outputYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	_, err = w.Write(out)
	return err
}
