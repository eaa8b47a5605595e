package main

import (
	"flag"
	"log"
	"net/http"
	"strings"

	"github.com/foomo/contentserver-richtext/cms"
	"github.com/foomo/contentserver-richtext/internal/config"
	"github.com/foomo/contentserver-richtext/internal/logging"
	"github.com/foomo/contentserver-richtext/mcp"
	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/service"
	"github.com/foomo/contentserver-richtext/service/vo"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	// Define command line flags
	stdioMode := flag.Bool("stdio", true, "Run in stdio mode")
	httpAddr := flag.String("http", cfg.App.HTTPAddr, "HTTP server address (e.g., ':8080')")
	endpoint := flag.String("endpoint", cfg.App.Endpoint, "MCP endpoint path in HTTP mode")
	flag.Parse()

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFilePath, cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	httpClient := http.DefaultClient
	renderer := richtext.NewCache(cfg.Render.CacheTTL)

	mcpConfig := mcp.Config{
		HTTPClient:      httpClient,
		Renderer:        renderer,
		DefaultSelector: cfg.ContentServer.ContentSelector,
	}
	mcpConfig.Service = newService(logger, cfg, httpClient, renderer)

	s := mcp.NewServer(mcpConfig)

	if *httpAddr != "" {
		logger.Info("Starting MCP server", zap.String("addr", *httpAddr), zap.String("endpoint", *endpoint))
		handler := mcp.NewMcpHTTPSSEServer(logger, s, mcpConfig, *endpoint, nil)
		if err := http.ListenAndServe(*httpAddr, handler); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
		return
	}
	if !*stdioMode {
		logger.Warn("no HTTP address given, falling back to stdio")
	}
	logger.Info("Starting MCP server in stdio mode...")
	if err := server.ServeStdio(s); err != nil {
		logger.Fatal("stdio server failed", zap.Error(err))
	}
}

func newService(logger *zap.Logger, cfg *config.Config, httpClient *http.Client, renderer *richtext.Cache) service.Service {
	cmsClient := cms.New(
		cfg.CMS.BaseURL,
		cms.WithHTTPClient(httpClient),
		cms.WithAPIKey(cfg.CMS.AuthCollection, cfg.CMS.APIKey),
		cms.WithRetry(cfg.CMS.RetryAttempts, cfg.CMS.RetryDelay),
		cms.WithLogger(logger.Named("cms")),
	)

	collections := map[vo.MimeType]service.Collection{}
	mimeTypes := make([]vo.MimeType, 0, len(cfg.ContentServer.MimeTypeCollections))
	for mimeType, target := range cfg.ContentServer.MimeTypeCollections {
		name, field, _ := strings.Cut(target, ":")
		collections[vo.MimeType(mimeType)] = service.Collection{Name: name, RichTextField: field}
		mimeTypes = append(mimeTypes, vo.MimeType(mimeType))
	}

	var contentServer service.ContentServer
	if cfg.ContentServer.URL != "" {
		contentServer = service.NewContentServerClient(cfg.ContentServer.URL, httpClient)
	} else {
		logger.Info("no contentserver configured, getDocument will fail", zap.String("cms", cfg.CMS.BaseURL))
	}

	return service.NewService(
		logger.Named("service"),
		service.SiteSettings{
			BaseURL:          cfg.ContentServer.SiteBaseURL,
			ContentServerURL: cfg.ContentServer.URL,
			ContentSelector:  cfg.ContentServer.ContentSelector,
			ScrapeSummaries:  cfg.ContentServer.ScrapeSummaries,
			MimeTypes:        mimeTypes,
			Collections:      collections,
		},
		httpClient,
		contentServer,
		cmsClient,
		renderer,
	)
}
