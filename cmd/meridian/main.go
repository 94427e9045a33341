package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/expenses"
	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/reports"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/sod"
	"github.com/meridian-erp/meridian-erp/internal/workflow"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	reportCache := cache.New(redisClient, cfg.ReportCacheTTL)
	auditLogger := shared.NewAuditLogger(pool)

	accountsService := accounts.NewService(accounts.NewRepository(pool), auditLogger)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsService := journals.NewService(logger, journals.NewRepository(pool), auditLogger, reportCache)
	journalsHandler := journals.NewHandler(logger, journalsService)

	reportsService := reports.NewService(logger, reports.NewRepository(pool), reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	workflowService := workflow.NewService(logger, workflow.NewRepository(pool), auditLogger)
	workflowHandler := workflow.NewHandler(logger, workflowService)

	arService := ar.NewService(logger, ar.NewRepository(pool), journalsService, ar.GLAccounts{
		Receivable: cfg.GLReceivableAccount,
		Revenue:    cfg.GLRevenueAccount,
		Cash:       cfg.GLCashAccount,
	})
	arHandler := ar.NewHandler(logger, arService)

	apService := ap.NewService(logger, ap.NewRepository(pool), journalsService, workflowService, ap.GLAccounts{
		Payable: cfg.GLPayableAccount,
		Expense: cfg.GLExpenseAccount,
		Cash:    cfg.GLCashAccount,
	})
	apHandler := ap.NewHandler(logger, apService)

	budgetService := budget.NewService(logger, budget.NewRepository(pool))
	budgetHandler := budget.NewHandler(logger, budgetService)

	expensePolicy := expenses.Policy{
		SingleItemLimit: cfg.ExpenseItemLimit,
		ReportLimit:     cfg.ExpenseReportLimit,
		MaxReceiptAge:   cfg.ExpenseReceiptMaxAge,
	}
	expenseService := expenses.NewService(logger, expenses.NewRepository(pool), journalsService, workflowService,
		expenses.GLAccounts{Cash: cfg.GLCashAccount}, expensePolicy)
	expenseHandler := expenses.NewHandler(logger, expenseService)

	// Subledger documents change status only after the approval run reaches a
	// durable terminal state. Cancelled runs leave the document untouched so
	// the submitter can start a fresh one.
	workflowService.OnTerminal(func(ctx context.Context, inst workflow.Instance, final workflow.InstanceStatus) {
		if final == workflow.StatusCancelled {
			return
		}
		approved := final == workflow.StatusApproved
		var err error
		switch inst.ResourceType {
		case ap.WorkflowCode:
			err = apService.ApplyWorkflowOutcome(ctx, inst.OrgID, inst.ResourceRef, approved)
		case expenses.WorkflowCode:
			err = expenseService.ApplyWorkflowOutcome(ctx, inst.OrgID, inst.ResourceRef, approved)
		default:
			return
		}
		if err != nil {
			logger.Error("apply workflow outcome",
				slog.String("resource_type", inst.ResourceType),
				slog.String("resource_ref", inst.ResourceRef.String()),
				slog.Any("error", err))
		}
	})

	permissionTable, err := sod.LoadTable(cfg.SoDPermissionsFile)
	if err != nil {
		logger.Error("load sod permission table", slog.Any("error", err))
		os.Exit(1)
	}
	sodHandler := sod.NewHandler(logger, permissionTable, nil)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Metrics:     metrics,
		Accounts:    accountsHandler,
		Journals:    journalsHandler,
		Reports:     reportsHandler,
		Receivables: arHandler,
		Payables:    apHandler,
		Budgets:     budgetHandler,
		Workflows:   workflowHandler,
		Expenses:    expenseHandler,
		SoD:         sodHandler,
		Jobs:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
