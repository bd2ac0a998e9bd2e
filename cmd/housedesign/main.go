package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions は全サブコマンド共通のフラグ
type rootOptions struct {
	configPath string
	envFiles   []string
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand はルートコマンドを作成（サブコマンド省略時はchat）
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "housedesign",
		Short:         "Conversational house design assistant with cost and budget tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "path to config YAML (empty for defaults and environment only)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files to load before reading the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "keep info logs on the terminal during chat")

	root.AddCommand(newChatCommand(opts), newServeCommand(opts))
	return root
}

func newChatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive design session in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve design sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// defaultConfigPath は設定ファイルパスを取得（存在しなければ空）
func defaultConfigPath() string {
	if path := os.Getenv("HOUSEDESIGN_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml"
	}
	return ""
}
