package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akriventsev/agentapi"
	"github.com/akriventsev/agentapi/components/monitoring"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/logging"
	"github.com/akriventsev/agentapi/framework/runtime"
)

func runServe() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "agentapi.yaml", "Path to YAML config")
	logLevel := fs.String("log-level", "info", "Log level")
	withMetrics := fs.Bool("metrics", false, "Expose Prometheus metrics")

	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	types, err := agentapi.DefaultTypes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(*logLevel, os.Stderr)
	builder := runtime.NewBuilder().
		WithTypes(types).
		WithConfig(cfg).
		WithLogger(logger)

	if *withMetrics {
		provider, err := monitoring.SetupMetrics(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = monitoring.ShutdownMetrics(context.Background(), provider)
		}()

		metrics, err := monitoring.NewMetrics()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		builder = builder.WithExecutionObserver(metrics)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runtime.Run(ctx, builder, func(ctx context.Context, r *runtime.Runtime) error {
		logger.Info().Strs("components", r.Components()).Msg("runtime started")
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDemo() {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	logLevel := fs.String("log-level", "warn", "Log level")

	fs.Parse(os.Args[2:])

	types, err := agentapi.DefaultTypes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Config{
		"planner": {Type: "planner_agent"},
		"builder": {
			Type:     "build_agent",
			Settings: map[string]interface{}{"planner": "planner"},
		},
		"security": {Type: "security"},
		"storage": {
			Type:     "persistence",
			Settings: map[string]interface{}{"driver": "memory"},
		},
	}

	builder := runtime.NewBuilder().
		WithTypes(types).
		WithConfig(cfg).
		WithLogger(logging.New(*logLevel, os.Stderr))

	err = runtime.Run(context.Background(), builder, func(ctx context.Context, r *runtime.Runtime) error {
		fmt.Println("Start order:", r.StartOrder())

		steps := []struct {
			component  string
			capability string
			params     core.Params
		}{
			{"planner", "analyze_requirements", core.Params{"text": "Create a user management system with authentication"}},
			{"planner", "plan_project", core.Params{"requirements": "web application with api"}},
			{"builder", "generate_compose", core.Params{"requirements": "REST API backend"}},
			{"security", "create_token", core.Params{"username": "admin"}},
			{"storage", "save_resource", core.Params{"id": "demo", "data": map[string]interface{}{"ok": true}}},
			{"storage", "load_resource", core.Params{"id": "demo"}},
		}

		for _, step := range steps {
			result, err := r.Execute(ctx, step.component, step.capability, step.params)
			if err != nil {
				return err
			}
			fmt.Printf("\n=== %s.%s ===\n%v\n", step.component, step.capability, result)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTypes() {
	types, err := agentapi.DefaultTypes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Built-in component types:")
	for _, name := range types.Types() {
		fmt.Println("  " + name)
	}
}

func runVersion() {
	meta := agentapi.GetMetadata()
	fmt.Printf("%s %s\n", meta.Name, meta.Version)
	fmt.Println(meta.Description)
}
