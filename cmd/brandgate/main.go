// Command brandgate prints the model routing plan for a deployment
// configuration: each task's primary model, its fallback chain, and the
// cheapest structured-output model the registry would select. Useful for
// verifying a config change before rollout.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/Jakedoes1111/BrandBible-sub001/infrastructure/llm"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults to built-in configuration)")
	flag.Parse()

	cfg := llm.DefaultConfig()
	if *configPath != "" {
		loaded, err := llm.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		log.Fatalf("Invalid model registry: %v", err)
	}

	fmt.Printf("Rate limits: %d/min, %d/hour\n", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour)
	fmt.Printf("Retry: %d attempts, base %dms, cap %dms, x%.1f backoff\n\n",
		cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMS, cfg.Retry.MaxDelayMS, cfg.Retry.BackoffMultiplier)

	tasks := []llm.TaskKind{
		llm.TaskBulkContent,
		llm.TaskChatAssistant,
		llm.TaskBrandAnalysis,
		llm.TaskLogoGeneration,
		llm.TaskVideoGeneration,
	}

	fmt.Println("Task routing:")
	for _, task := range tasks {
		primary, err := registry.ResolvePrimaryModel(task, "", llm.Requirements{})
		if err != nil {
			fmt.Printf("  %-18s (unbound)\n", task)
			continue
		}

		chain := registry.TaskFallbacks(task)
		if chain == nil {
			chain = registry.ResolveFallbacks(primary)
		}
		if len(chain) == 0 {
			fmt.Printf("  %-18s %s\n", task, primary)
			continue
		}
		fmt.Printf("  %-18s %s -> %s\n", task, primary, strings.Join(chain, " -> "))
	}

	if cheapest, ok := registry.SelectBestModel(llm.Requirements{
		Text:             true,
		StructuredOutput: true,
		PreferLowCost:    true,
	}); ok {
		fmt.Printf("\nCheapest structured-output text model: %s\n", cheapest)
	}
}
