package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

const (
	ToolLookupUser   = "lookup_user"
	ToolTransferCall = "transfer_call"
)

// Transferer moves the caller elsewhere and describes the outcome.
type Transferer interface {
	Transfer(ctx context.Context, destination string) string
}

// UserDirectory answers lookup_user.
type UserDirectory interface {
	Lookup(ctx context.Context, phone string) (string, error)
}

// StaticDirectory is a placeholder directory that knows every caller.
type StaticDirectory struct{}

func (StaticDirectory) Lookup(_ context.Context, phone string) (string, error) {
	return fmt.Sprintf("User found for %s. Status: Premium. Last order: Coffee setup (Delivered).", phone), nil
}

// Tools are the actions the LLM may call during a conversation.
type Tools struct {
	transfer  Transferer
	directory UserDirectory
}

func NewTools(transfer Transferer, directory UserDirectory) *Tools {
	if directory == nil {
		directory = StaticDirectory{}
	}
	return &Tools{transfer: transfer, directory: directory}
}

func (t *Tools) Specs() []interfaces.ToolSpec {
	specs := []interfaces.ToolSpec{{
		Name:        ToolLookupUser,
		Description: "Look up user details by phone number.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"phone": map[string]any{"type": "string", "description": "The phone number to look up"},
			},
			"required": []string{"phone"},
		},
	}}
	if t.transfer != nil {
		specs = append(specs, interfaces.ToolSpec{
			Name:        ToolTransferCall,
			Description: "Transfer the call to a human support agent or another phone number.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"destination": map[string]any{
						"type":        "string",
						"description": "Phone number or SIP address to transfer to. Omit to use the default transfer number.",
					},
				},
			},
		})
	}
	return specs
}

// Call runs the named tool. The result, including any error, is text for the LLM.
func (t *Tools) Call(ctx context.Context, name, arguments string) string {
	if t == nil {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
		}
	}

	switch name {
	case ToolLookupUser:
		phone, _ := args["phone"].(string)
		res, err := t.directory.Lookup(ctx, phone)
		if err != nil {
			return fmt.Sprintf("Error looking up user: %v", err)
		}
		return res
	case ToolTransferCall:
		if t.transfer == nil {
			break
		}
		dest, _ := args["destination"].(string)
		return t.transfer.Transfer(ctx, dest)
	}
	return fmt.Sprintf("Error: unknown tool %q", name)
}
