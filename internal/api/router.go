package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Sepheus7/dataforge-studio/internal/agents"
	"github.com/Sepheus7/dataforge-studio/internal/api/handlers"
	"github.com/Sepheus7/dataforge-studio/internal/api/middleware"
	"github.com/Sepheus7/dataforge-studio/internal/core/artifacts"
	"github.com/Sepheus7/dataforge-studio/internal/core/event"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/runner"
	"github.com/Sepheus7/dataforge-studio/internal/generate"
	"github.com/Sepheus7/dataforge-studio/internal/llm"
	"github.com/Sepheus7/dataforge-studio/internal/memory"
)

type RouterConfig struct {
	APIKey           string
	Bus              *event.Bus
	Store            *job.Store
	Runner           *runner.Runner
	SchemaAgent      *agents.SchemaAgent
	DocumentAgent    *agents.DocumentAgent
	ReplicationAgent *agents.ReplicationAgent
	Generator        *generate.Generator
	Reconciler       *artifacts.Reconciler
	LLM              llm.Client
	Memory           *memory.Log
	DatasetsDir      string
	JobMaxAge        time.Duration
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
	}))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(20)))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status": "ok",
			"services": map[string]string{
				"jobs":      "up",
				"streaming": "up",
				"memory":    "up",
			},
		})
	})

	v1 := e.Group("/v1")
	config := huma.DefaultConfig("DataForge Studio API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/v1"}}
	config.Info.Description = "Synthetic data generation backend"
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"ApiKeyAuth": {
			Type:        "apiKey",
			In:          "header",
			Name:        "X-API-Key",
			Description: "Pre-shared API key",
		},
	}

	api := humaecho.NewWithGroup(e, v1, config)

	authMw := middleware.Auth(cfg.APIKey)
	security := []map[string][]string{{"ApiKeyAuth": {}}}

	genHandler := handlers.NewGenerationHandler(cfg.Store, cfg.Runner, cfg.SchemaAgent, cfg.Generator)
	huma.Register(api, huma.Operation{
		OperationID:   "generation-create",
		Method:        http.MethodPost,
		Path:          "/generation",
		Summary:       "Generate data from a natural-language prompt",
		Tags:          []string{"Generation"},
		Security:      security,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusAccepted,
	}, genHandler.Generate)

	huma.Register(api, huma.Operation{
		OperationID:   "generation-create-schema",
		Method:        http.MethodPost,
		Path:          "/generation/schema",
		Summary:       "Generate data from an explicit schema",
		Tags:          []string{"Generation"},
		Security:      security,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusAccepted,
	}, genHandler.GenerateSchema)

	huma.Register(api, huma.Operation{
		OperationID: "generation-get",
		Method:      http.MethodGet,
		Path:        "/generation/{id}",
		Summary:     "Get job status",
		Tags:        []string{"Generation"},
		Security:    security,
		Middlewares: huma.Middlewares{authMw},
	}, genHandler.Get)

	huma.Register(api, huma.Operation{
		OperationID: "generation-cancel",
		Method:      http.MethodDelete,
		Path:        "/generation/{id}",
		Summary:     "Cancel a running job",
		Tags:        []string{"Generation"},
		Security:    security,
		Middlewares: huma.Middlewares{authMw},
	}, genHandler.Cancel)

	jobsHandler := handlers.NewJobsHandler(cfg.Store, cfg.JobMaxAge)
	huma.Register(api, huma.Operation{
		OperationID: "jobs-cleanup",
		Method:      http.MethodPost,
		Path:        "/jobs/cleanup",
		Summary:     "Remove old terminal job records",
		Tags:        []string{"Jobs"},
		Security:    security,
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.Cleanup)

	docsHandler := handlers.NewDocumentsHandler(cfg.Store, cfg.Runner, cfg.DocumentAgent)
	huma.Register(api, huma.Operation{
		OperationID:   "documents-create",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Generate a batch of synthetic documents",
		Tags:          []string{"Documents"},
		Security:      security,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusAccepted,
	}, docsHandler.Generate)

	replHandler := handlers.NewReplicationHandler(cfg.Store, cfg.Runner, cfg.ReplicationAgent, cfg.DatasetsDir)
	huma.Register(api, huma.Operation{
		OperationID:   "replication-upload",
		Method:        http.MethodPost,
		Path:          "/replication/upload",
		Summary:       "Upload a CSV sample for replication",
		Tags:          []string{"Replication"},
		Security:      security,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusCreated,
	}, replHandler.Upload)

	huma.Register(api, huma.Operation{
		OperationID:   "replication-run",
		Method:        http.MethodPost,
		Path:          "/replication/{dataset_id}",
		Summary:       "Replicate an uploaded dataset",
		Tags:          []string{"Replication"},
		Security:      security,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusAccepted,
	}, replHandler.Replicate)

	chatHandler := handlers.NewChatHandler(cfg.LLM, cfg.Memory)
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/chat",
		Summary:     "Chat about schemas and datasets",
		Tags:        []string{"Chat"},
		Security:    security,
		Middlewares: huma.Middlewares{authMw},
	}, chatHandler.Chat)

	datasetsHandler := handlers.NewDatasetsHandler(cfg.Store, cfg.Reconciler)
	huma.Register(api, huma.Operation{
		OperationID: "datasets-list",
		Method:      http.MethodGet,
		Path:        "/datasets",
		Summary:     "List known jobs, including restored ones",
		Tags:        []string{"Datasets"},
		Security:    security,
		Middlewares: huma.Middlewares{authMw},
	}, datasetsHandler.List)

	// SSE and file downloads bypass huma; same auth via the echo variant.
	echoAuth := middleware.AuthEcho(cfg.APIKey)
	streamHandler := handlers.NewStreamHandler(cfg.Bus, cfg.Store)
	v1.GET("/generation/:id/stream", streamHandler.Stream, echoAuth)

	downloadHandler := handlers.NewDownloadHandler(cfg.Store, cfg.Generator)
	v1.GET("/generation/:id/download", downloadHandler.Download, echoAuth)
}
