// Command vadctl is a small HTTP client for the vad-segmenter control plane:
// start, stop, status, and options, from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	baseURL := resolveServerURL()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	cmd := os.Args[1]
	client := &http.Client{Timeout: 10 * time.Second}

	var err error
	switch cmd {
	case "status":
		err = doGet(client, baseURL+"/api/v1/vad/status")
	case "start":
		err = doStart(client, baseURL, os.Args[2:])
	case "stop":
		err = doPost(client, baseURL+"/api/v1/vad/stop", nil)
	case "options":
		if len(os.Args) > 2 && os.Args[2] == "set" {
			err = doOptionsSet(client, baseURL, os.Args[3:])
		} else {
			err = doGet(client, baseURL+"/api/v1/vad/options")
		}
	case "health":
		err = doGet(client, baseURL+"/health")
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func resolveServerURL() string {
	if url := os.Getenv("SERVER_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "5173"
	}
	return "http://localhost:" + port
}

func printUsage() {
	fmt.Println(`vadctl - control the vad-segmenter service

Usage:
  vadctl status                 show current run state and segment counters
  vadctl start [key=value ...]  apply optional option overrides, then start
  vadctl stop                   stop the active run (flushes in-progress segment)
  vadctl options                show the current configuration
  vadctl options set key=value  update configuration while idle
  vadctl health                 check service liveness
  vadctl help                   show this message

Environment:
  SERVER_URL   full base URL of the server (default http://localhost:$PORT)
  PORT         port to use when SERVER_URL is not set (default 5173)`)
}

func doGet(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func doPost(client *http.Client, url string, body []byte) error {
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func doStart(client *http.Client, baseURL string, args []string) error {
	opts, err := parseKeyValueArgs(args)
	if err != nil {
		return err
	}
	var body []byte
	if len(opts) > 0 {
		body, err = json.Marshal(opts)
		if err != nil {
			return err
		}
	}
	return doPost(client, baseURL+"/api/v1/vad/start", body)
}

func doOptionsSet(client *http.Client, baseURL string, args []string) error {
	opts, err := parseKeyValueArgs(args)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("options set requires at least one key=value pair")
	}
	body, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPatch, baseURL+"/api/v1/vad/options", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

// parseKeyValueArgs turns "key=value" CLI arguments into a JSON-friendly map,
// coercing values that parse as numbers into floats and leaving everything
// else as a string.
func parseKeyValueArgs(args []string) (map[string]any, error) {
	opts := make(map[string]any, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid option %q, expected key=value", arg)
		}
		key, value := parts[0], parts[1]
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			opts[key] = f
			continue
		}
		opts[key] = value
	}
	return opts, nil
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "server returned %s\n", resp.Status)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %s", resp.Status)
	}
	return nil
}
