package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/discovery"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/webserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-memory demo backend",
	Long: `Starts an in-memory admin backend seeded with the demo dataset. It
implements the full admin API plus a websocket change feed, so the console
can be tried without a real platform.

Use --expose to listen on all interfaces, require a generated auth token,
advertise over mDNS and print a QR code of the URL.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "Interface to listen on")
	serveCmd.Flags().Int("port", 8000, "Port to listen on (0 picks a free port)")
	serveCmd.Flags().String("api-prefix", webserver.DefaultPrefix, "Path prefix for the admin API")
	serveCmd.Flags().Bool("empty", false, "Start without the demo dataset")
	serveCmd.Flags().String("auth-token", "", "Require this bearer token for API access")
	serveCmd.Flags().Float64("rate-limit", 0, "Per-client requests per second (0 disables)")
	serveCmd.Flags().Bool("expose", false, "Listen on 0.0.0.0 with auth, mDNS and a QR code")
	serveCmd.Flags().Bool("mdns", false, "Advertise the backend over mDNS")
	serveCmd.Flags().String("mdns-name", "oxyadmin", "Instance name for the mDNS advertisement")
	serveCmd.Flags().Bool("qr", false, "Print a QR code of the URL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	prefix, _ := cmd.Flags().GetString("api-prefix")
	empty, _ := cmd.Flags().GetBool("empty")
	authToken, _ := cmd.Flags().GetString("auth-token")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
	expose, _ := cmd.Flags().GetBool("expose")
	enableMDNS, _ := cmd.Flags().GetBool("mdns")
	mdnsName, _ := cmd.Flags().GetString("mdns-name")
	printQR, _ := cmd.Flags().GetBool("qr")

	if expose {
		if !cmd.Flags().Changed("host") {
			host = "0.0.0.0"
		}
		if authToken == "" {
			authToken = generateToken()
		}
		if !cmd.Flags().Changed("rate-limit") {
			rateLimit = 10
		}
	}

	srv := webserver.New(webserver.Options{
		Host:      host,
		Port:      port,
		Prefix:    prefix,
		AuthToken: authToken,
		RateLimit: rateLimit,
		Empty:     empty,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}
	url := srv.URL()

	fmt.Printf("\033]8;;%s\033\\%s\033]8;;\033\\\n", url, url)
	printField("API", url+srv.Prefix())
	printField("Live feed", livefeed.FeedURL(url))
	if authToken != "" {
		printField("Auth token", authToken)
	}
	if expose || printQR {
		if err := printQRCode(url); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to render QR code: %v\n", err)
		}
	}

	var mdnsServer *mdns.Server
	if expose || enableMDNS {
		server, err := discovery.Advertise(mdnsName, srv.Port(), url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to start mDNS advertisement: %v\n", err)
		} else {
			mdnsServer = server
			defer mdnsServer.Shutdown()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down backend: %w", err)
	}
	return nil
}

func generateToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func printQRCode(url string) error {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Println(code.ToString(false))
	return nil
}
