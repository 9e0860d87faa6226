// The tusach CLI talks to a running api-server: account management, catalog
// search and ranking, shelf upkeep, event tailing, and catalog export.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tusach/internal/notify"
	"tusach/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type bookPage struct {
	Data       []models.Book `json:"data"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

func main() {
	global := flag.NewFlagSet("tusach", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "search":
		handleSearch(ctx, client, *baseURL, args[1:])
	case "books":
		handleBooks(ctx, client, *baseURL, sub, args[2:])
	case "bookmarks":
		handleBookmarks(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "history":
		handleHistory(ctx, client, *baseURL, *tokenPath, args[1:])
	case "review":
		handleReview(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "sync":
		handleSync(*baseURL, sub, args[2:])
	case "notify":
		handleNotify(sub, args[2:])
	case "epub":
		handleEpub(ctx, client, *baseURL, args[1:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		// Revoke server-side first; a failed revoke still clears the local
		// token so the CLI is never stuck logged in.
		if token, err := readToken(tokenPath); err == nil && token != "" {
			if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout failed: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: tusach auth <login|register|logout>")
	}
}

func handleSearch(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	scope := fs.String("scope", "books", "search scope (books|authors)")
	limit := fs.Int("limit", 20, "page size")
	page := fs.Int("page", 1, "page number (books scope only)")
	_ = fs.Parse(args)

	if *query == "" {
		log.Fatal("query is required")
	}

	u, err := url.Parse(baseURL + "/search")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	qv.Set("q", *query)
	qv.Set("scope", *scope)
	qv.Set("limit", fmt.Sprintf("%d", *limit))
	qv.Set("page", fmt.Sprintf("%d", *page))
	u.RawQuery = qv.Encode()

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON(resp)
}

func handleBooks(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "top":
		fs := flag.NewFlagSet("books top", flag.ExitOnError)
		metric := fs.String("metric", "view_count", "ranking metric")
		genre := fs.String("genre", "", "genre slug filter")
		status := fs.String("status", "", "status filter (numeric)")
		source := fs.String("source", "", "source filter")
		limit := fs.Int("limit", 20, "page size")
		page := fs.Int("page", 0, "page number (0: bare list)")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/books")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("metric", *metric)
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		if *genre != "" {
			qv.Set("genre", *genre)
		}
		if *status != "" {
			qv.Set("status", *status)
		}
		if *source != "" {
			qv.Set("source", *source)
		}
		if *page > 0 {
			qv.Set("page", fmt.Sprintf("%d", *page))
		}
		u.RawQuery = qv.Encode()

		var resp any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("top failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("books show", flag.ExitOnError)
		slug := fs.String("slug", "", "book slug")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("book slug is required")
		}

		var resp models.BookDetail
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/books/"+url.PathEscape(*slug), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "chapters":
		fs := flag.NewFlagSet("books chapters", flag.ExitOnError)
		slug := fs.String("slug", "", "book slug")
		limit := fs.Int("limit", 100, "page size")
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("book slug is required")
		}

		u, err := url.Parse(baseURL + "/books/" + url.PathEscape(*slug) + "/chapters")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("page", fmt.Sprintf("%d", *page))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("chapters failed: %v", err)
		}
		printJSON(resp)
	case "genres":
		var resp []models.Genre
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/genres", "", nil, &resp); err != nil {
			log.Fatalf("genres failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: tusach books <top|show|chapters|genres>")
	}
}

func handleBookmarks(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "add":
		fs := flag.NewFlagSet("bookmarks add", flag.ExitOnError)
		bookID := fs.Int64("book-id", 0, "book id")
		chapter := fs.Int64("chapter", 0, "current chapter")
		shelf := fs.String("shelf", "reading", "shelf (reading|finished|wishlist|dropped)")
		_ = fs.Parse(args)
		if *bookID <= 0 {
			log.Fatal("book-id is required")
		}

		payload := map[string]any{
			"book_id": *bookID,
			"chapter": *chapter,
			"shelf":   *shelf,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/bookmarks", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		fs := flag.NewFlagSet("bookmarks remove", flag.ExitOnError)
		bookID := fs.Int64("book-id", 0, "book id")
		_ = fs.Parse(args)
		if *bookID <= 0 {
			log.Fatal("book-id is required")
		}

		var resp map[string]any
		endpoint := fmt.Sprintf("%s/users/bookmarks/%d", baseURL, *bookID)
		if err := doJSON(ctx, client, http.MethodDelete, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("bookmarks list", flag.ExitOnError)
		shelf := fs.String("shelf", "", "shelf filter")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/users/bookmarks")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *shelf != "" {
			qv.Set("shelf", *shelf)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: tusach bookmarks <add|remove|list>")
	}
}

func handleHistory(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	token := mustToken(tokenPath)

	fs := flag.NewFlagSet("history", flag.ExitOnError)
	bookID := fs.Int64("book-id", 0, "filter to one book (0: all)")
	limit := fs.Int("limit", 50, "page size")
	offset := fs.Int("offset", 0, "offset")
	_ = fs.Parse(args)

	u, err := url.Parse(baseURL + "/users/history")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	if *bookID > 0 {
		qv.Set("book_id", fmt.Sprintf("%d", *bookID))
	}
	qv.Set("limit", fmt.Sprintf("%d", *limit))
	qv.Set("offset", fmt.Sprintf("%d", *offset))
	u.RawQuery = qv.Encode()

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
		log.Fatalf("history failed: %v", err)
	}
	printJSON(resp)
}

func handleReview(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "add":
		token := mustToken(tokenPath)
		fs := flag.NewFlagSet("review add", flag.ExitOnError)
		slug := fs.String("slug", "", "book slug")
		rating := fs.Int("rating", 0, "rating 1-5")
		body := fs.String("body", "", "review text")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("book slug is required")
		}

		payload := map[string]any{"rating": *rating, "body": *body}
		endpoint := baseURL + "/books/" + url.PathEscape(*slug) + "/reviews"
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("review failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("review list", flag.ExitOnError)
		slug := fs.String("slug", "", "book slug")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("book slug is required")
		}

		var resp any
		endpoint := baseURL + "/books/" + url.PathEscape(*slug) + "/reviews"
		if err := doJSON(ctx, client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: tusach review <add|list>")
	}
}

func handleSync(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "", "TCP sync server address (empty: WebSocket on the API host)")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)

		for {
			var err error
			if *addr != "" {
				err = runSyncTCP(*addr, *pretty)
			} else {
				endpoint, werr := websocketURL(baseURL, "/ws")
				if werr != nil {
					log.Fatalf("ws url: %v", werr)
				}
				err = runSyncWS(endpoint, *pretty)
			}
			if err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: tusach sync listen")
	}
}

func handleNotify(sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7071", "UDP notify server address")
		userID := fs.String("user", "", "user id to register")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user id is required")
		}
		if err := runNotifyUDP(*addr, *userID); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: tusach notify subscribe")
	}
}

func handleEpub(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("epub", flag.ExitOnError)
	slug := fs.String("slug", "", "book slug")
	out := fs.String("out", "", "output path (default: <slug>.epub)")
	_ = fs.Parse(args)
	if *slug == "" {
		log.Fatal("book slug is required")
	}

	path := *out
	if path == "" {
		path = *slug + ".epub"
	}

	endpoint := baseURL + "/books/" + url.PathEscape(*slug) + "/epub"
	if err := download(ctx, client, endpoint, path); err != nil {
		log.Fatalf("epub failed: %v", err)
	}
	log.Printf("✅ saved %s", path)
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/books.json", "output JSON path")
		limit := fs.Int("limit", 200, "max books to export")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d books to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/books.csv", "output CSV path")
		limit := fs.Int("limit", 200, "max books to export")
		_ = fs.Parse(args)

		items, err := fetchBooks(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d books to %s", len(items), *out)
	default:
		log.Fatal("usage: tusach export <json|csv>")
	}
}

func runSyncTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		printEvent(reader.Bytes(), pretty)
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runSyncWS(wsURL string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(msg, pretty)
	}
}

// runNotifyUDP registers with the notify server and then prints every
// new-chapter datagram it pushes back.
func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg, err := json.Marshal(notify.RegisterMessage{
		Type:   notify.RegisterMessageType,
		UserID: userID,
	})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return err
	}
	log.Printf("[notify] registered %s with %s", userID, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		printEvent(buf[:n], true)
	}
}

func printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Println(string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Println(string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}

func fetchBooks(ctx context.Context, client *http.Client, baseURL string, limit int) ([]models.Book, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.Book
	page := 1
	for len(out) < limit {
		pageSize := 50
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u, err := url.Parse(baseURL + "/books")
		if err != nil {
			return nil, err
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", pageSize))
		qv.Set("page", fmt.Sprintf("%d", page))
		u.RawQuery = qv.Encode()

		var resp bookPage
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}
		out = append(out, resp.Data...)
		if page >= resp.TotalPages {
			break
		}
		page++
	}

	return out, nil
}

func writeJSON(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Book) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "name", "slug", "author", "status", "source", "chapter_count", "view_count", "bookmark_count",
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			fmt.Sprintf("%d", item.ID),
			item.Name,
			item.Slug,
			item.AuthorName,
			fmt.Sprintf("%d", item.Status),
			item.Source,
			fmt.Sprintf("%d", item.ChapterCount),
			fmt.Sprintf("%d", item.ViewCount),
			fmt.Sprintf("%d", item.BookmarkCount),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func download(ctx context.Context, client *http.Client, endpoint, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.tusach-token.json"
	}
	return filepath.Join(home, ".tusach", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("tusach <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  search -q <query> [-scope books|authors]")
	fmt.Println("  books top|show|chapters|genres")
	fmt.Println("  bookmarks add|remove|list")
	fmt.Println("  history")
	fmt.Println("  review add|list")
	fmt.Println("  sync listen")
	fmt.Println("  notify subscribe -user <id>")
	fmt.Println("  epub -slug <slug>")
	fmt.Println("  export json|csv")
}
