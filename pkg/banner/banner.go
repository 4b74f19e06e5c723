package banner

import (
	"fmt"

	"relay/pkg/config"
)

const banner = `
██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
██║  ██║███████╗███████╗██║  ██║   ██║
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝
`

// Print prints the startup banner with the effective configuration.
func Print(cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", cfg.Addr())
	fmt.Printf("DB Path:  %s\n", cfg.Server.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if cfg.Sweeper.Enabled {
		fmt.Printf("Sweeper:  %s\n", cfg.Sweeper.Cron)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/auth/register - Create an account (JSON: phone, password)")
	fmt.Println("POST /v1/auth/login    - Log in and obtain a session token")
	fmt.Println("GET  /v1/chats         - List your conversations")
	fmt.Println("GET  /v1/ws            - Websocket event stream")
	fmt.Println("GET  /docs/            - API documentation")

	if cfg.Sessions.Secret == "" {
		fmt.Println("\nWARNING: no session secret configured; set RELAY_SESSION_SECRET")
	}
	if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
		fmt.Println("NOTE: TLS not configured; serving plain HTTP")
	}
}
