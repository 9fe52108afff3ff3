package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"innscanner/archive"
	"innscanner/logger"
	"innscanner/metrics"
	"innscanner/parser"
	"innscanner/pipeline"
	"innscanner/server"
)

// ScanCmd ищет ИНН в уже распакованном каталоге
func ScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Найти ИНН в папках заявок каталога",
		Args:  cobra.ExactArgs(1),
		RunE:  handleScanCmd,
	}
	cmd.Flags().Bool("json", false, "Вывести результат в JSON")
	return cmd
}

func handleScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	scanner := parser.NewScanner(cfg.ScannerOptions(nil))
	result, err := scanner.Scan(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printScan(cmd.OutOrStdout(), scanner.Options().FolderKeyword, result)
	return nil
}

// ProcessCmd распаковывает архив, ищет ИНН и фильтрует по ним реестр
func ProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <archive.zip>",
		Short: "Обработать архив заявок и отфильтровать реестр контрактов",
		Args:  cobra.ExactArgs(1),
		RunE:  handleProcessCmd,
	}
	cmd.Flags().Bool("json", false, "Вывести результат в JSON")
	cmd.Flags().Bool("keep", false, "Не удалять каталог распаковки")
	return cmd
}

func handleProcessCmd(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	src, closeSrc, err := cfg.OpenRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeSrc()

	p := &pipeline.Pipeline{
		Scanner:  parser.NewScanner(cfg.ScannerOptions(nil)),
		Registry: src,
	}
	report, err := p.Process(ctx, args[0], cfg.Workspace.ExtractDir)
	if keep, _ := cmd.Flags().GetBool("keep"); !keep {
		defer func() {
			if err := os.RemoveAll(cfg.Workspace.ExtractDir); err != nil {
				logger.FromContext(ctx).Warn("Не удалось удалить временные файлы", "error", err)
			}
		}()
	}
	if report != nil {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
				return werr
			}
		} else {
			printReport(cmd.OutOrStdout(), cfg.Scan.FolderKeyword, report)
		}
	}
	return err
}

// ServeCmd запускает веб интерфейс
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить веб интерфейс",
		Args:  cobra.NoArgs,
		RunE:  handleServeCmd,
	}
	cmd.Flags().String("addr", "", "Адрес HTTP сервера")
	return cmd
}

func handleServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	ctx := cmd.Context()
	src, closeSrc, err := cfg.OpenRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeSrc()

	srv, err := server.New(cfg, src, metrics.New(), logger.FromContext(ctx))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// CleanCmd удаляет загруженный архив и каталог распаковки
func CleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Удалить временные файлы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := archive.Clear(cfg.Workspace.ArchivePath, cfg.Workspace.ExtractDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Временные файлы удалены.")
			return nil
		},
	}
}
