// Package mcpserver exposes raw SQL access to the insurance database over the
// Model Context Protocol.
package mcpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/apex/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"safedrive/internal/db"
)

const (
	Name    = "SafeDrive SQL"
	Version = "1.0.0"

	greetingURI  = "resource://greeting"
	greetingText = "Hello from FastMCP Resource"
)

// readKeywords start statements that return rows.
var readKeywords = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH"}

// writeKeywords can follow a WITH clause and modify data.
var writeKeywords = map[string]bool{"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true}

// SQLServer runs SQL sent by MCP clients.
type SQLServer struct {
	db       *db.DB
	readOnly bool
	mcp      *server.MCPServer
}

func New(database *db.DB, readOnly bool) *SQLServer {
	s := &SQLServer{db: database, readOnly: readOnly}

	m := server.NewMCPServer(Name, Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	m.AddTool(mcp.NewTool("execute_sql",
		mcp.WithDescription("Executes a raw SQL query on the database."),
		mcp.WithString("sql_query",
			mcp.Required(),
			mcp.Description("The SQL statement to run"),
		),
	), s.handleExecuteSQL)

	m.AddResource(mcp.NewResource(greetingURI, "greeting",
		mcp.WithResourceDescription("A static greeting"),
		mcp.WithMIMEType("text/plain"),
	), handleGreeting)

	s.mcp = m
	return s
}

// MCP returns the underlying protocol server.
func (s *SQLServer) MCP() *server.MCPServer { return s.mcp }

// Serve listens on addr with the streamable HTTP transport until ctx is done.
func (s *SQLServer) Serve(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": addr, "read_only": s.readOnly}).Info("mcp.listen")
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down mcp server: %w", err)
		}
		return nil
	}
}

func (s *SQLServer) handleExecuteSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("sql_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.ExecuteSQL(ctx, query)), nil
}

func handleGreeting(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: greetingURI, MIMEType: "text/plain", Text: greetingText},
	}, nil
}

// ExecuteSQL runs one statement and describes the outcome as text.
func (s *SQLServer) ExecuteSQL(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	reads := isRead(query)
	if s.readOnly && (!reads || writesData(query)) {
		log.WithFields(log.Fields{"query": query}).Warn("mcp.execute_sql.rejected")
		return "Error executing query: server is read-only; only SELECT, SHOW, DESCRIBE and EXPLAIN are allowed"
	}

	if reads {
		out, err := s.query(ctx, query)
		if err != nil {
			return fmt.Sprintf("Error executing query: %v", err)
		}
		return out
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error executing query: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Sprintf("Error executing query: %v", err)
	}
	log.WithFields(log.Fields{"rows": n}).Info("mcp.execute_sql.exec")
	return fmt.Sprintf("Query executed successfully. %d row(s) affected.", n)
}

// query runs a row-returning statement. In read-only mode it runs inside a
// READ ONLY transaction that is always rolled back, so MySQL refuses any write.
func (s *SQLServer) query(ctx context.Context, query string) (string, error) {
	var q interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	} = s.db
	if s.readOnly {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return "", err
		}
		defer tx.Rollback()
		q = tx
	}

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var records []string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		rec, err := encodeRow(cols, values)
		if err != nil {
			return "", err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if len(records) == 0 {
		return "Query executed successfully, but returned no results.", nil
	}
	return "Query executed successfully. Results:\n[" + strings.Join(records, ", ") + "]", nil
}

// encodeRow renders one row as a JSON object keeping the column order.
func encodeRow(cols []string, values []any) (string, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		k, _ := json.Marshal(col)
		b.Write(k)
		b.WriteString(": ")
		v, err := json.Marshal(normalize(values[i]))
		if err != nil {
			return "", err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String(), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return x
	}
}

func isRead(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	for _, kw := range readKeywords {
		if first == kw {
			return true
		}
	}
	return false
}

// writesData reports whether a data-modifying keyword appears as a bare word
// outside quoted literals.
func writesData(query string) bool {
	var (
		word  strings.Builder
		quote rune
	)
	flush := func() bool {
		w := strings.ToUpper(word.String())
		word.Reset()
		return writeKeywords[w]
	}
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			if flush() {
				return true
			}
			quote = r
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			if flush() {
				return true
			}
		}
	}
	return flush()
}
