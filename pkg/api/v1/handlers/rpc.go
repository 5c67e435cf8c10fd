package handlers

import (
	"encoding/json"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/slatehq/slate/internal/db/repos"
	"github.com/slatehq/slate/pkg/types"
)

// RPCRequest is the api3 request envelope. Params is an ordered sequence
// whose first element is the authentication block and whose last element is
// the method-specific argument payload.
type RPCRequest struct {
	MethodName string            `json:"method_name"`
	Params     []json.RawMessage `json:"params"`
}

// RPCResponse is the api3 response envelope.
type RPCResponse struct {
	Results any `json:"results"`
}

// RPCErrorResponse is the api3 error envelope.
type RPCErrorResponse struct {
	Message string `json:"message"`
}

// AuthParams is the authentication block carried as the first params
// element of every call.
type AuthParams struct {
	ScriptName  string `json:"script_name"`
	ScriptKey   string `json:"script_key"`
	SessionUUID string `json:"session_uuid,omitempty"`
}

// FindOnePayload is the method-specific argument of find_one.
type FindOnePayload struct {
	Type    string         `json:"type"`
	Filters []types.Filter `json:"filters"`
	Fields  []string       `json:"fields,omitempty"`
}

// CreatePayload is the method-specific argument of create.
type CreatePayload struct {
	Type         string       `json:"type"`
	Fields       types.Entity `json:"fields"`
	ReturnFields []string     `json:"return_fields,omitempty"`
}

// ServerInfo is the result of the info method.
type ServerInfo struct {
	Version []int `json:"version"`
}

// RPCHandler handles api3 requests for entity records
type RPCHandler struct {
	Records *repos.RecordRepository

	// Expected script credentials. Requests with a different auth block
	// are rejected before dispatch.
	ScriptName string
	ScriptKey  string

	// Version reported by the info method.
	Version []int
}

// HandleRPC handles all api3 requests
func (h *RPCHandler) HandleRPC(c *fiber.Ctx) error {
	var req RPCRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, "invalid request format")
	}

	if req.MethodName == "" {
		return respondWithRPCError(c, fiber.StatusBadRequest, "method_name is required")
	}

	if req.MethodName == MethodInfo {
		return c.JSON(RPCResponse{Results: ServerInfo{Version: h.Version}})
	}

	if !IsEntityMethod(req.MethodName) {
		return respondWithRPCError(c, fiber.StatusBadRequest, "unknown method: "+req.MethodName)
	}

	if len(req.Params) < 2 {
		return respondWithRPCError(c, fiber.StatusBadRequest, "params must carry auth and arguments")
	}

	var auth AuthParams
	if err := json.Unmarshal(req.Params[0], &auth); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, "invalid auth params")
	}
	if auth.ScriptName != h.ScriptName || auth.ScriptKey != h.ScriptKey {
		return respondWithRPCError(c, fiber.StatusUnauthorized, "script authentication failed")
	}

	payload := req.Params[len(req.Params)-1]

	switch req.MethodName {
	case MethodFindOne:
		return h.handleFindOne(c, payload)
	case MethodCreate:
		return h.handleCreate(c, payload)
	default:
		return respondWithRPCError(c, fiber.StatusBadRequest, "unknown method: "+req.MethodName)
	}
}

func (h *RPCHandler) handleFindOne(c *fiber.Ctx, payload json.RawMessage) error {
	var args FindOnePayload
	if err := json.Unmarshal(payload, &args); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, "invalid find_one payload")
	}
	if args.Type == "" {
		return respondWithRPCError(c, fiber.StatusBadRequest, "entity type is required")
	}

	entity, err := h.Records.FindOne(c.Context(), args.Type, args.Filters, args.Fields)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusInternalServerError, err.Error())
	}
	// A miss is results: null, not an error.
	if entity == nil {
		return c.JSON(RPCResponse{Results: nil})
	}
	return c.JSON(RPCResponse{Results: entity})
}

func (h *RPCHandler) handleCreate(c *fiber.Ctx, payload json.RawMessage) error {
	var args CreatePayload
	if err := json.Unmarshal(payload, &args); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, "invalid create payload")
	}
	if args.Type == "" {
		return respondWithRPCError(c, fiber.StatusBadRequest, "entity type is required")
	}

	entity, err := h.Records.Create(c.Context(), args.Type, args.Fields, args.ReturnFields)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(RPCResponse{Results: entity})
}

// respondWithRPCError sends a standardized error response
func respondWithRPCError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(RPCErrorResponse{Message: message})
}
