package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database"
	"github.com/smysle/huzz-rng/internal/database/repository"
	"github.com/smysle/huzz-rng/internal/notify"
	"github.com/smysle/huzz-rng/internal/service"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// cli 命令行全局参数
type cli struct {
	configPath string
	debug      bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "huzz",
		Short:         "Stivion Huzz RNG 兑换码生成与管理",
		Version:       service.GeneratorVersion.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			c.cfg = cfg
			logger.Init(c.debug, cfg.Log.Dir)
			logger.Debug().Str("config", c.configPath).Msg("配置加载完成")
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.json", "配置文件路径")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "调试模式")

	root.AddCommand(
		c.generateCmd(),
		c.useCmd(),
		c.deleteCmd(),
		c.clearCmd(),
		c.listCmd(),
		c.statsCmd(),
		c.exportCmd(),
		c.backupCmd(),
		c.restoreCmd(),
		c.serveCmd(),
		c.configCmd(),
	)

	return root
}

// app 一次命令执行期间打开的资源
type app struct {
	db      *gorm.DB
	repo    *repository.CodeRepository
	codes   *service.CodeService
	exports *service.ExportService
	backups *service.BackupService
}

// open 打开数据库并组装服务，调用方负责 Close
func (c *cli) open() (*app, error) {
	db, err := database.Open(&c.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	notifier, err := notify.FromConfig(&c.cfg.Notify)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("初始化通知失败: %w", err)
	}

	repo := repository.NewCodeRepository(db)
	generator := service.NewGenerator(repo, notifier, &c.cfg.Generator)

	return &app{
		db:      db,
		repo:    repo,
		codes:   service.NewCodeService(repo, generator, c.cfg),
		exports: service.NewExportService(repo, &c.cfg.Export),
		backups: service.NewBackupService(repo, c.cfg.Database.BackupDir, c.cfg.Database.BackupMaxCount),
	}, nil
}

// Close 等待后台通知发完后关闭数据库
func (a *app) Close() {
	a.codes.Wait()
	if err := database.Close(a.db); err != nil {
		logger.Warn().Err(err).Msg("关闭数据库失败")
	}
}

// withApp 打开资源执行 fn，结束后关闭
func (c *cli) withApp(fn func(a *app) error) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
