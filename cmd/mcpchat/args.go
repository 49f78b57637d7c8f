package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const usageLine = "usage: mcpchat [flags] <endpoint>"

// envConfigPath overrides the default config file location.
const envConfigPath = "MCPCHAT_CONFIG"

var errHelp = errors.New("help requested")

// options holds the parsed command line.
type options struct {
	ConfigPath string
	Raw        bool
	Query      string
	Endpoint   string
}

// parseArgs parses flags and the single positional endpoint.
func parseArgs(args []string) (options, error) {
	opts := options{ConfigPath: defaultConfigPath()}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help" || arg == "help":
			return opts, errHelp
		case arg == "--raw":
			opts.Raw = true
		case arg == "--config" || arg == "-q" || arg == "--query":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("flag %s needs a value", arg)
			}
			i++
			if arg == "--config" {
				opts.ConfigPath = args[i]
			} else {
				opts.Query = args[i]
			}
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--query="):
			opts.Query = strings.TrimPrefix(arg, "--query=")
		case strings.HasPrefix(arg, "-q="):
			opts.Query = strings.TrimPrefix(arg, "-q=")
		case strings.HasPrefix(arg, "-") && arg != "-":
			return opts, fmt.Errorf("unknown flag %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) != 1 {
		return opts, fmt.Errorf("expected exactly one endpoint, got %d", len(positional))
	}
	opts.Endpoint = positional[0]
	return opts, nil
}

func defaultConfigPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return "config.yaml"
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, `mcpchat - chat with a Gemini model that can call MCP server tools

USAGE:
    mcpchat [flags] <endpoint>

ENDPOINT:
    http://host:port/sse          SSE (or server.transport from config)
    sse+https://host/sse          SSE
    http+stream://host/mcp        streamable HTTP
    stdio:python server.py        spawn a stdio server
    NAME                          a server from config or mcp_servers.json

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file (default: ./config.yaml, or $MCPCHAT_CONFIG)
    --raw              Print answers without markdown rendering
    -q, --query TEXT   Answer one query and exit

ENVIRONMENT:
    GEMINI_API_KEY           Model API key (required)
    MCPCHAT_*                Override config values
    MCPCHAT_SERVERS_CONFIG   Path to an mcpServers JSON file

Type 'quit' at the Query prompt to exit.`)
}
