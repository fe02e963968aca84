package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultLocationLimit = 25
	defaultItemPageSize  = 15
	maxPageSize          = 100
)

// ---------------------------------------------------------------------------
// ItemitMCP — tool handlers
// ---------------------------------------------------------------------------

// ItemitMCP holds the dependencies shared by all tool handlers. It keeps no
// state between invocations.
type ItemitMCP struct {
	client *Client
	newID  func() string
}

// NewItemitMCP wires the handlers to client. newID supplies ids for
// create-item; nil means random UUIDs.
func NewItemitMCP(client *Client, newID func() string) *ItemitMCP {
	if newID == nil {
		newID = uuid.NewString
	}
	return &ItemitMCP{client: client, newID: newID}
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// intArg reads an optional integer argument and checks it against [lo, hi].
// JSON numbers arrive as float64, so fractional values are rejected.
func intArg(req mcp.CallToolRequest, key string, def, lo, hi int) (int, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return def, nil
	}
	var n int
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		if x < math.MinInt32 || x > math.MaxInt32 {
			return 0, fmt.Errorf("%s is out of range", key)
		}
		n = int(x)
	case int:
		n = x
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if n < lo || n > hi {
		if hi == math.MaxInt {
			return 0, fmt.Errorf("%s must be at least %d", key, lo)
		}
		return 0, fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Formatting helpers
// ---------------------------------------------------------------------------

// prettyJSON indents v with two spaces, keeping the upstream key order for raw
// messages. Characters such as & and < are written as-is.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// profile is the part of a location or item record used for labels.
type profile struct {
	ID   json.RawMessage `json:"id"`
	Name json.RawMessage `json:"name"`
}

// recordLabel returns the name, else the id, else fallback, plus the id for
// display.
func recordLabel(rec json.RawMessage, fallback string) (label, id string) {
	var p profile
	_ = json.Unmarshal(rec, &p)
	id, hasID := truthyText(p.ID)
	if name, ok := truthyText(p.Name); ok {
		label = name
	} else if hasID {
		label = id
	} else {
		label = fallback
	}
	if !hasID {
		id = "unknown"
	}
	return label, id
}

// detailedList numbers each record with its label and full JSON.
func detailedList(records []json.RawMessage, fallback string) string {
	entries := make([]string, len(records))
	for i, rec := range records {
		label, id := recordLabel(rec, fallback)
		entries[i] = fmt.Sprintf("%d. %s (ID: %s)\n%s", i+1, label, id, prettyJSON(rec))
	}
	return strings.Join(entries, "\n\n")
}

// nameList numbers each record with its label only.
func nameList(records []json.RawMessage, fallback string) string {
	entries := make([]string, len(records))
	for i, rec := range records {
		label, _ := recordLabel(rec, fallback)
		entries[i] = fmt.Sprintf("%d. %s", i+1, label)
	}
	return strings.Join(entries, "\n")
}

func textResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultText(msg)
}

func errResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(msg)
}

// ---------------------------------------------------------------------------
// MCP Tool handlers
// ---------------------------------------------------------------------------

func (t *ItemitMCP) handleGetLocationByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return errResult("name is required"), nil
	}
	limit, err := intArg(req, "limit", defaultLocationLimit, 1, maxPageSize)
	if err != nil {
		return errResult(err.Error()), nil
	}
	skip, err := intArg(req, "skip", 0, 0, math.MaxInt)
	if err != nil {
		return errResult(err.Error()), nil
	}

	switch reply := t.client.Do(ctx, http.MethodGet, t.client.locationSearchURL(name, limit, skip), nil).(type) {
	case nil:
		return errResult("Failed to search for locations (no response from API)."), nil
	case *ErrorEnvelope:
		return errResult(fmt.Sprintf("Failed to search for locations. Error: %s", reply.Message)), nil
	case *Envelope:
		if len(reply.Results) == 0 {
			return textResult(fmt.Sprintf("No locations found for \"%s\".", name)), nil
		}
		return textResult(fmt.Sprintf("Search results for \"%s\" (limit=%d):\n%s",
			name, limit, detailedList(reply.Results, "Unnamed location"))), nil
	default:
		return errResult(fmt.Sprintf("unexpected reply %T", reply)), nil
	}
}

func (t *ItemitMCP) handleSearchItemByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return errResult("name is required"), nil
	}
	size, err := intArg(req, "size", defaultItemPageSize, 1, maxPageSize)
	if err != nil {
		return errResult(err.Error()), nil
	}
	page, err := intArg(req, "page", 1, 1, math.MaxInt)
	if err != nil {
		return errResult(err.Error()), nil
	}

	switch reply := t.client.Do(ctx, http.MethodPost, t.client.itemSearchURL(name, size, page), nil).(type) {
	case nil:
		return errResult("Failed to search for items (no response from API)."), nil
	case *ErrorEnvelope:
		return errResult(fmt.Sprintf("Failed to search for items. Error: %s", reply.Message)), nil
	case *Envelope:
		if len(reply.Results) == 0 {
			return textResult(fmt.Sprintf("No items found for \"%s\".", name)), nil
		}
		return textResult(fmt.Sprintf("Search results for \"%s\" (size=%d):\n%s",
			name, size, detailedList(reply.Results, "Unnamed item"))), nil
	default:
		return errResult(fmt.Sprintf("unexpected reply %T", reply)), nil
	}
}

// ItemCreatePayload is the body of PUT /items/{id}.
type ItemCreatePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Serial      string `json:"serial"`
}

func (t *ItemitMCP) handleCreateItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return errResult("name is required"), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return errResult("description is required"), nil
	}
	serial, err := req.RequireString("serial")
	if err != nil {
		return errResult("serial is required"), nil
	}

	itemID := t.newID()
	payload := ItemCreatePayload{Name: name, Description: description, Serial: serial}

	switch reply := t.client.Do(ctx, http.MethodPut, t.client.itemURL(itemID), payload).(type) {
	case nil:
		return errResult("Failed to create item (no response from API)."), nil
	case *ErrorEnvelope:
		return errResult(fmt.Sprintf("Failed to create item. Error: %s", reply.Message)), nil
	default:
		return textResult(fmt.Sprintf("Item created/updated successfully (id: %s): %s", itemID, prettyJSON(reply.Raw()))), nil
	}
}

// handleGetReminders has no error branch: an error body falls through to the
// raw dump.
func (t *ItemitMCP) handleGetReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reply := t.client.Do(ctx, http.MethodGet, t.client.remindersURL(), nil)
	if reply == nil {
		return errResult("Failed to retrieve reminders (no response from API)."), nil
	}

	env, ok := reply.(*Envelope)
	if !ok || len(env.Results) == 0 {
		return textResult(fmt.Sprintf("No reminders found. Raw API response: %s", prettyJSON(reply.Raw()))), nil
	}
	return textResult(fmt.Sprintf("List of reminders: %s", prettyJSON(env.Results))), nil
}

type itemSearchFilter struct {
	AllOf []any `json:"allOf"`
}

type itemSearchSort struct {
	Sort string            `json:"sort"`
	By   map[string]string `json:"by"`
}

// ItemSearchBody is the filter/sort body of POST /item-profiles/_search.
type ItemSearchBody struct {
	Filters []itemSearchFilter `json:"filters"`
	Sorts   []itemSearchSort   `json:"sorts"`
}

// recentItemsBody matches every item, most recent activity first.
func recentItemsBody() ItemSearchBody {
	return ItemSearchBody{
		Filters: []itemSearchFilter{{AllOf: []any{}}},
		Sorts:   []itemSearchSort{{Sort: "ITEM", By: map[string]string{"latestActivity": "DESC"}}},
	}
}

// handleGetItems lists names only, unlike search-item-by-name which dumps each
// record.
func (t *ItemitMCP) handleGetItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	size, err := intArg(req, "size", defaultItemPageSize, 1, maxPageSize)
	if err != nil {
		return errResult(err.Error()), nil
	}

	reply := t.client.Do(ctx, http.MethodPost, t.client.itemListURL(size, 1), recentItemsBody())
	if reply == nil {
		return errResult("Failed to retrieve items (no response from API)."), nil
	}

	env, ok := reply.(*Envelope)
	if !ok || len(env.Results) == 0 {
		return textResult(fmt.Sprintf("No items found. Raw API response: %s", prettyJSON(reply.Raw()))), nil
	}
	return textResult(fmt.Sprintf("List of items (size=%d):\n%s", size, nameList(env.Results, "Unnamed item"))), nil
}

// ---------------------------------------------------------------------------
// MCP tool definitions
// ---------------------------------------------------------------------------

func defineTools(t *ItemitMCP) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get-location-by-name",
				mcp.WithDescription("Get locations by item name in Itemit. Optionally specify the number of locations (limit, default 25) and skip (default 0)."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Name of the location to search for")),
				mcp.WithNumber("limit", mcp.Min(1), mcp.Max(maxPageSize), mcp.Description("Number of locations to retrieve (default 25, max 100)")),
				mcp.WithNumber("skip", mcp.Min(0), mcp.Description("Number of locations to skip (default 0)")),
			),
			Handler: t.handleGetLocationByName,
		},
		{
			Tool: mcp.NewTool("search-item-by-name",
				mcp.WithDescription("Search for items by name in Itemit. Optionally specify the number of items (size, default 15) and page (default 1)."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Name of the item to search for")),
				mcp.WithNumber("size", mcp.Min(1), mcp.Max(maxPageSize), mcp.Description("Number of items to retrieve (default 15, max 100)")),
				mcp.WithNumber("page", mcp.Min(1), mcp.Description("Page number (default 1)")),
			),
			Handler: t.handleSearchItemByName,
		},
		{
			Tool: mcp.NewTool("create-item",
				mcp.WithDescription("Create an item in Itemit. Requires name, description, and serial."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Name of the item")),
				mcp.WithString("description", mcp.Required(), mcp.Description("Description of the item")),
				mcp.WithString("serial", mcp.Required(), mcp.Description("Serial number of the item")),
			),
			Handler: t.handleCreateItem,
		},
		{
			Tool: mcp.NewTool("get-reminders",
				mcp.WithDescription("Get reminders from Itemit"),
			),
			Handler: t.handleGetReminders,
		},
		{
			Tool: mcp.NewTool("get-items",
				mcp.WithDescription("Get items from Itemit. Optionally specify the number of items (size), default is 15."),
				mcp.WithNumber("size", mcp.Min(1), mcp.Max(maxPageSize), mcp.Description("Number of items to retrieve (default 15, max 100)")),
			),
			Handler: t.handleGetItems,
		},
	}
}
