// Package database 数据库初始化
package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// Open 打开数据库连接并迁移表结构，调用方负责在退出时 Close
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}

	// 配置连接池
	if cfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// 单写者：sqlite 固定一个连接，:memory: 库也依赖这一点
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetMaxOpenConns(1)
	}

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.Code{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	logger.Debug().Str("driver", cfg.Driver).Msg("数据库连接成功")
	return db, nil
}

// dialectorFor 根据驱动类型构造 gorm 方言
func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		return gormmysql.Open(MySQLDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// MySQLDSN 生成 MySQL 连接串
func MySQLDSN(cfg *config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
