package main

import (
	"log"
	"time"

	"github.com/heizer23/Atlas/pkg/auth"
	"github.com/heizer23/Atlas/pkg/cache"
	"github.com/heizer23/Atlas/pkg/config"
	"github.com/heizer23/Atlas/pkg/gateway"
	"github.com/heizer23/Atlas/pkg/mcp"
	"github.com/heizer23/Atlas/pkg/server"
	"github.com/heizer23/Atlas/pkg/session"
	"github.com/heizer23/Atlas/pkg/tools/foodtracker"
	"github.com/heizer23/Atlas/pkg/tools/fruit"
)

const (
	serverName    = "Atlas MCP Gateway"
	serverVersion = "1.0.0"
)

func main() {
	cfgs := config.LoadConfig()

	registry := mcp.NewToolRegistry()
	if err := registry.Register(fruit.Tool()); err != nil {
		log.Fatalf("failed to register tool: %v", err)
	}
	for _, tool := range foodtracker.Tools(newMealStore(cfgs)) {
		if err := registry.Register(tool); err != nil {
			log.Fatalf("failed to register tool: %v", err)
		}
	}

	sessions := session.NewManager(cfgs.SessionIdleTimeout)
	stopSweeper := sessions.StartSweeper(5 * time.Minute)
	defer stopSweeper()

	engine := gateway.NewEngine(registry, sessions, serverName, serverVersion)
	handler := gateway.NewHandler(engine, newVerifier(cfgs))
	router := server.NewRouter(handler)

	if cfgs.TLSCertFile != "" && cfgs.TLSKeyFile != "" {
		err := server.StartSecureServer(server.TLSOptions{
			CertFile: cfgs.TLSCertFile,
			KeyFile:  cfgs.TLSKeyFile,
			Addr:     cfgs.ServerAddr,
		}, router)
		if err != nil {
			log.Fatalf("TLS server failed: %v", err)
		}
		return
	}

	srv := server.NewServer(cfgs.ServerAddr, router)
	srv.Run()
}

func newVerifier(cfgs config.Config) auth.Verifier {
	if cfgs.DisableAuth {
		log.Print("WARNING auth is DISABLED. All callers share one anonymous identity. Local development only.")
		return auth.NoAuthVerifier{}
	}

	switch cfgs.AuthMode {
	case config.AuthModeJWT:
		if cfgs.JWTSecret == "" {
			log.Fatal("ATLAS_JWT_SECRET is required when ATLAS_AUTH_MODE=jwt")
		}
		return auth.NewHMACVerifier([]byte(cfgs.JWTSecret))
	default:
		if cfgs.GoogleClientID == "" {
			log.Print("WARNING GOOGLE_CLIENT_ID not set. Token audience will not be checked.")
		}
		verifier := auth.NewGoogleVerifier(cfgs.GoogleClientID)
		if cfgs.RedisAddr != "" {
			verifier.WithCache(cache.NewRedisIdentityCache(cfgs.RedisAddr, "", 0))
			log.Printf("verified-token cache enabled at %s", cfgs.RedisAddr)
		}
		return verifier
	}
}

func newMealStore(cfgs config.Config) foodtracker.MealStore {
	if cfgs.MongoURI == "" {
		log.Print("WARNING ATLAS_MONGO_URI not set. Food log entries are kept in memory only.")
		return foodtracker.NewMemoryStore()
	}
	store, err := foodtracker.NewMongoMealStore(cfgs.MongoURI, "atlas", "food_logs")
	if err != nil {
		log.Fatalf("failed to connect to the food log store: %v", err)
	}
	return store
}
