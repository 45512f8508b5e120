/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mautops/property-flow/internal/api"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Property Flow API server.
The server will listen on the configured host and port,
and provide REST API interfaces for process tasks and lifecycle transitions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		// 4. 配置热更新: 特权角色与日志级别
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath, logger)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				ctr.Engine().SetPrivilegedRoles(newCfg.Workflow.PrivilegedRoles)
				ctr.Roles().Clear()
				api.SetLogLevel(logger, newCfg.Log.Level)
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher disabled")
			} else {
				defer watcher.Stop()
			}
		}

		// 5. 后台组件
		go ctr.Hub().Run(ctx)
		ctr.Collector().Start()
		defer ctr.Collector().Stop()

		var tracing *api.Tracing
		if cfg.Tracing.Enabled {
			tracing, err = api.InitTracing(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
		}

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           ctr.Router(tracing),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		}

		logger.Info("shutting down server")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server forced to shutdown")
		}
		if tracing != nil {
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("failed to flush traces")
			}
		}
		stop()

		logger.WithFields(logrus.Fields{"addr": addr}).Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志,覆盖配置文件
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
