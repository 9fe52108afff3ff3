package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"innscanner/config"
	"innscanner/logger"
	"innscanner/parser"
)

type configKey struct{}

// RootCmd корневая команда innscan
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "innscan",
		Short:             "Поиск ИНН в выписках ЕГРЮЛ из архивов заявок",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Путь к YAML файлу настроек")
	flags.String("log-level", "", "Уровень логов (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Логи в формате JSON")
	flags.Int("workers", 0, "Сколько папок заявок обрабатывать одновременно")
	flags.String("policy", "", "Реакция на нечитаемый документ: skip, folder, abort")

	root.AddCommand(
		ScanCmd(),
		ProcessCmd(),
		ServeCmd(),
		CleanCmd(),
	)
	return root
}

// setup загружает настройки, применяет флаги и кладет логгер в контекст команды
func setup(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log := logger.NewLogger(cfg.LoggerConfig())
	logger.SetDefault(log)
	ctx := logger.ContextWithLogger(cmd.Context(), log)
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.Log.Level = level
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("policy") {
		raw, _ := flags.GetString("policy")
		policy, err := parser.ParsePolicy(raw)
		if err != nil {
			return err
		}
		cfg.Scan.FailurePolicy = string(policy)
	}
	return nil
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("настройки не загружены")
	}
	return cfg, nil
}
