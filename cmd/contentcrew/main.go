package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"content-crew/internal/di"
	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/config"
	"content-crew/internal/infrastructure/env"
	"content-crew/internal/infrastructure/prompts"
	"content-crew/internal/infrastructure/userinteraction"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", config.DefaultPath, "settings file")
		publish     = flag.Bool("publish", false, "save approved articles as Markdown")
		list        = flag.Bool("list", false, "list the registered agents and exit")
		length      = flag.Int("length", 0, "target length in words")
		stylePath   = flag.String("style", "", "file with the writing style guide")
		userContext = flag.String("context", "", "extra context for the research stage")
		batchPath   = flag.String("batch", "", "file with one topic per line, prefixed with an optional priority and a colon")
		timeout     = flag.Duration("timeout", 30*time.Minute, "overall time limit")
		query       = flag.String("query", "", "search the knowledge base and exit")
		scopeName   = flag.String("scope", "both", "collection for -query: knowledge, style or both")
		limit       = flag.Int("limit", 0, "number of -query results, 0 for the configured default")
		status      = flag.Bool("status", false, "show knowledge base collection sizes and exit")
		listContent = flag.Bool("list-content", false, "list published articles and exit")
	)
	flag.Parse()

	envService := env.NewEnvService()
	settings, err := config.Load(*configPath, envService)
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	infoOnly := *query != "" || *status || *listContent
	container, err := di.NewContainer(ctx, di.Config{
		Settings:   *settings,
		LogName:    "contentcrew",
		WithoutLLM: infoOnly,
	})
	if err != nil {
		log.Printf("Initialization failed: %v", err)
		return 1
	}
	defer container.Close()

	if infoOnly {
		return runInfo(ctx, container, *query, *scopeName, *limit, *status, *listContent)
	}

	if *list {
		crew, err := prompts.GenerateCrewPrompt(prompts.CrewPrompt, container.Registry)
		if err != nil {
			log.Printf("Failed to render crew: %v", err)
			return 1
		}
		fmt.Println(crew)
		return 0
	}

	style := settings.Content.WritingStyle
	if *stylePath != "" {
		data, err := os.ReadFile(*stylePath)
		if err != nil {
			log.Printf("Failed to read style guide: %v", err)
			return 1
		}
		style = string(data)
	}

	reporter := userinteraction.NewConsoleReporter()
	base := entity.RunRequest{
		UserContext:  *userContext,
		TargetLength: *length,
		WritingStyle: style,
	}

	var results []*entity.PipelineRunResult
	if *batchPath != "" {
		reqs, err := readBatch(*batchPath, base)
		if err != nil {
			log.Printf("Failed to read batch file: %v", err)
			return 1
		}
		results, err = container.Batch.RunAll(ctx, reqs, reporter.PrefixRunIDs().HandleEvent)
		if err != nil {
			container.Logger.Error("Some batch requests were rejected", "error", err)
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
		}
	} else {
		topic := strings.TrimSpace(strings.Join(flag.Args(), " "))
		if topic == "" {
			topic, err = reporter.AskQuestion("Article topic:")
			if err != nil {
				log.Printf("Failed to read topic: %v", err)
				return 1
			}
		}
		req := base
		req.Topic = topic
		res, err := container.Pipeline.Run(ctx, req, reporter.HandleEvent)
		if err != nil {
			log.Printf("Run rejected: %v", err)
			return 1
		}
		results = append(results, res)
	}

	exitCode := 0
	for _, res := range results {
		if res == nil {
			exitCode = 1
			continue
		}
		reporter.ShowSummary(res)
		if res.Failed() {
			exitCode = 1
			continue
		}

		article := entity.ArticleFromResult(res)
		if !*publish {
			if len(results) == 1 {
				fmt.Printf("\n%s\n\n%s\n", article.Title, article.Content)
			}
			continue
		}
		if !res.Approved {
			fmt.Printf("Not publishing %q: quality gate not passed\n", article.Title)
			continue
		}
		pr, err := container.Publisher.Publish(ctx, article)
		if err != nil || !pr.Success {
			container.Logger.Error("Publish failed", "run_id", res.RunID, "error", err, "detail", pr.Error)
			exitCode = 1
			continue
		}
		fmt.Printf("Published %s\n", pr.RemoteID)
	}
	return exitCode
}

func runInfo(ctx context.Context, c *di.Container, query, scopeName string, limit int, status, listContent bool) int {
	if status {
		printStatus(os.Stdout, c.Knowledge)
	}
	if listContent {
		if err := printContent(os.Stdout, c.Publisher); err != nil {
			log.Printf("Failed to list articles: %v", err)
			return 1
		}
	}
	if query != "" {
		scope, err := parseScope(scopeName)
		if err != nil {
			log.Print(err)
			return 1
		}
		snippets, err := c.Knowledge.Retrieve(ctx, query, scope, limit)
		if err != nil {
			log.Printf("Query failed: %v", err)
			return 1
		}
		printSnippets(os.Stdout, query, snippets)
	}
	return 0
}

// readBatch parses lines like "high: Intuition in business". Blank lines and
// lines starting with # are skipped.
func readBatch(path string, base entity.RunRequest) ([]entity.RunRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reqs []entity.RunRequest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req := base
		req.Topic = line
		if prefix, rest, ok := strings.Cut(line, ":"); ok {
			if p, err := entity.ParsePriority(strings.ToLower(strings.TrimSpace(prefix))); err == nil {
				req.Priority = p
				req.Topic = strings.TrimSpace(rest)
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, scanner.Err()
}
