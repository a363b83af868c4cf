package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/export"
	"github.com/smysle/huzz-rng/internal/scheduler"
	"github.com/smysle/huzz-rng/internal/web"
	"github.com/smysle/huzz-rng/pkg/logger"
	"github.com/smysle/huzz-rng/pkg/utils"
)

func (c *cli) exportCmd() *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "export [PATH]",
		Short: "导出全部兑换码 (csv/pdf/xlsx/png)",
		Long: `导出全部兑换码（包含已使用）。未指定 --format 时根据文件扩展名判断，
未指定 PATH 时写入 export.dir 下带时间戳的文件。PNG 多页时每页一个文件。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			format, err := resolveFormat(formatName, path)
			if err != nil {
				return err
			}

			return c.withApp(func(a *app) error {
				files, err := a.exports.ExportFile(format, path)
				if err != nil {
					return fmt.Errorf("导出失败: %w", err)
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "导出格式 csv/pdf/xlsx/png")
	return cmd
}

// resolveFormat --format 优先，其次是文件扩展名，都没有时用 csv
func resolveFormat(name, path string) (export.Format, error) {
	switch {
	case name != "":
		return export.ParseFormat(name)
	case path != "":
		return export.FormatFromPath(path)
	default:
		return export.CSV, nil
	}
}

func (c *cli) backupCmd() *cobra.Command {
	var (
		noCompress bool
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "备份兑换码到 database.backup_dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				out := cmd.OutOrStdout()
				if list {
					backups, err := a.backups.ListBackups()
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "FILE\tSIZE\tTIME")
					for _, b := range backups {
						fmt.Fprintf(w, "%s\t%s\t%s\n", b.Filename, utils.FormatSize(b.Size), utils.FormatTime(&b.CreatedAt))
					}
					return w.Flush()
				}

				result, err := a.backups.Backup(!noCompress)
				if err != nil {
					return fmt.Errorf("备份失败: %w", err)
				}
				fmt.Fprintf(out, "%s (%d 条, %s)\n", result.FilePath, result.Records, utils.FormatSize(result.Size))

				if _, err := a.backups.PruneBackups(); err != nil {
					logger.Warn().Err(err).Msg("清理旧备份失败")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "不使用 gzip 压缩")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "列出已有备份")
	return cmd
}

func (c *cli) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "从备份恢复兑换码（已存在的兑换码保持不变）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app) error {
				n, err := a.backups.Restore(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已恢复 %d 个兑换码\n", n)
				return nil
			})
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web API 和定时任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if host != "" {
				c.cfg.API.Host = host
			}
			if port != 0 {
				c.cfg.API.Port = port
			}

			return c.withApp(func(a *app) error {
				sched, err := scheduler.New(&c.cfg.Scheduler, a.backups)
				if err != nil {
					return err
				}
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()

				server := web.New(&c.cfg.API, web.Deps{DB: a.db, Codes: a.codes, Exports: a.exports})
				errCh := make(chan error, 1)
				go func() {
					errCh <- server.Start()
				}()

				logger.Info().Str("app", c.cfg.AppName).Msg("🚀 服务启动成功，按 Ctrl+C 停止...")

				// 等待退出信号
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(quit)

				select {
				case <-quit:
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("启动 Web API 服务失败: %w", err)
					}
				}

				logger.Info().Msg("正在关闭服务...")
				return server.Stop()
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "监听地址，默认取 api.host")
	cmd.Flags().IntVar(&port, "port", 0, "监听端口，默认取 api.port")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置管理",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "生成默认配置文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.configPath); err == nil && !force {
				return fmt.Errorf("%s 已存在，使用 --force 覆盖", c.configPath)
			}
			if err := config.Default().Save(c.configPath); err != nil {
				return fmt.Errorf("保存配置失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 %s\n", c.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已有配置")

	cmd.AddCommand(initCmd)
	return cmd
}
