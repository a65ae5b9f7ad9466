// Package main 提供账本数据库迁移的命令行工具
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/config"
	"github.com/LeonQiao/resell_ledger/internal/database"
	"github.com/LeonQiao/resell_ledger/internal/logger"
)

func main() {
	var (
		action = flag.String("action", "up", "up, down, version or force")
		steps  = flag.Int("steps", 1, "steps for down migration")
		target = flag.Uint("target", 0, "target version for version/force")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "migrate", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.New(cfg, lg)
	if err != nil {
		lg.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := run(db, lg, cfg.Migrations.Dir, *action, *steps, *target); err != nil {
		lg.Fatal("migration failed", zap.String("action", *action), zap.Error(err))
	}
}

func run(db *database.DB, lg *zap.Logger, dir, action string, steps int, target uint) error {
	switch action {
	case "up":
		lg.Info("applying pending migrations", zap.String("dir", dir))
		return db.RunMigrations(dir)

	case "down":
		lg.Info("rolling back migrations", zap.Int("steps", steps))
		return db.MigrateDown(dir, steps)

	case "version":
		if target == 0 {
			return fmt.Errorf("version action requires -target > 0")
		}
		lg.Info("migrating to version", zap.Uint("target", target))
		return db.MigrateToVersion(dir, target)

	case "force":
		// force允许target为0，用于清除dirty状态后重置
		lg.Warn("forcing migration version, dirty state will be cleared", zap.Uint("target", target))
		return db.ForceMigrationVersion(dir, target)

	default:
		usage()
		os.Exit(1)
		return nil
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -action=[up|down|version|force] [-steps=N] [-target=N]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  migrate -action=up")
	fmt.Fprintln(os.Stderr, "  migrate -action=down -steps=1")
	fmt.Fprintln(os.Stderr, "  migrate -action=version -target=2")
	fmt.Fprintln(os.Stderr, "  migrate -action=force -target=0")
}
