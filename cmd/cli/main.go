package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"repackhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type sourceListResponse struct {
	Total int                     `json:"total"`
	Items []models.DownloadSource `json:"items"`
}

type repackListResponse struct {
	Total int             `json:"total"`
	Items []models.Repack `json:"items"`
}

func main() {
	global := flag.NewFlagSet("repackhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	client := &http.Client{Timeout: 60 * time.Second}

	var err error
	switch args[0] {
	case "import":
		err = runImport(client, *baseURL, args[1:])
	case "refresh":
		err = runRefresh(client, *baseURL, args[1:])
	case "list":
		err = runList(client, *baseURL)
	case "repacks":
		err = runRepacks(client, *baseURL, args[1:])
	case "remove":
		err = runRemove(client, *baseURL, args[1:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", args[0], err)
	}
}

func printUsage() {
	fmt.Println(`usage: repackhub [-api URL] <command>

commands:
  import [-fail-on-duplicate] <manifest-url>   register a new download source
  refresh <id>                                 re-fetch a source's manifest
  list                                         list registered sources
  repacks <id>                                 list a source's repacks
  remove <id>                                  delete a source and its repacks`)
}

func runImport(client *http.Client, baseURL string, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	failOnDuplicate := fs.Bool("fail-on-duplicate", false, "error if the URL is already registered")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import requires exactly one manifest URL")
	}

	body, _ := json.Marshal(map[string]any{
		"url":               fs.Arg(0),
		"fail_on_duplicate": *failOnDuplicate,
	})

	resp, err := client.Post(baseURL+"/sources", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func runRefresh(client *http.Client, baseURL string, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	resp, err := client.Post(fmt.Sprintf("%s/sources/%d/refresh", baseURL, id), "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func runList(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/sources")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return printResponse(resp)
	}

	var list sourceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%d source(s)\n", list.Total)
	for _, s := range list.Items {
		fmt.Printf("  #%d  %s  (%d downloads, %d matched)  %s\n",
			s.ID, s.Name, s.DownloadCount, len(s.ObjectIDs), s.URL)
	}
	return nil
}

func runRepacks(client *http.Client, baseURL string, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	resp, err := client.Get(fmt.Sprintf("%s/sources/%d/repacks", baseURL, id))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return printResponse(resp)
	}

	var list repackListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("%d repack(s)\n", list.Total)
	for _, r := range list.Items {
		fmt.Printf("  #%d  %s  %s  matched=%v\n", r.ID, r.Title, r.FileSize, r.ObjectIDs)
	}
	return nil
}

func runRemove(client *http.Client, baseURL string, args []string) error {
	id, err := requireID(args)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sources/%d", baseURL, id), nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func requireID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one source id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid source id %q", args[0])
	}
	return id, nil
}

func printResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	fmt.Println(string(body))
	return nil
}
