package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	chatter "github.com/putto11262002/roomchat/app"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "roomchat",
	Short:        "Room based chat server and headless chat widget",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API server",
	RunE:  runServe,
}

var flagConfigFile string

func init() {
	serveCmd.Flags().StringVarP(&flagConfigFile, "config", "c", "", "config file (default ./config.yaml when present)")
	rootCmd.AddCommand(serveCmd, watchCmd, sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	config, err := chatter.LoadConfig(flagConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := chatter.New(ctx, config)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
