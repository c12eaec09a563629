package main

import (
	"context"
	"encoding/json"
	"fasolink-chat/auth"
	"fasolink-chat/domain"
	"fasolink-chat/infrastructure/grpc/client"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const usage = `usage:
  publish notify <user_id> <json>
  publish read <conversation_id> <user_id> <updated>
  publish conversation <listing_id> <user_id> <user_id>...
  publish token <user_id> <username>
  publish revoke <token>`

// remote holds one client per service, commands pick the one they need.
type remote struct {
	publisher *client.PublisherClient
	operator  *client.OperatorClient
	out       io.Writer
}

type command func(ctx context.Context, r remote) error

// Config mints its own service token, it shares the server secret.
type Config struct {
	ServerAddress string        `env:"PUBLISH_ADDR,default=localhost:50051"`
	JWTSecret     string        `env:"JWT_SECRET,required=true"`
	JWTIssuer     string        `env:"JWT_ISSUER,default=fasolink"`
	Timeout       time.Duration `env:"PUBLISH_TIMEOUT,default=5s"`
	LogLevel      string        `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Publish error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	call, err := parse(args)
	if err != nil {
		return exitConfig, fmt.Errorf("%w\n%s", err, usage)
	}

	token, err := auth.NewTokenIssuer(config.JWTSecret, config.JWTIssuer).
		GenerateToken(domain.Principal{Username: "publish-cli"}, []string{auth.RolePublisher, auth.RoleOperator}, time.Minute)
	if err != nil {
		return exitRuntime, fmt.Errorf("token: %w", err)
	}

	publisher, err := client.Dial(config.ServerAddress, token)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = publisher.Close() }()
	operator, err := client.DialOperator(config.ServerAddress, token)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = operator.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := call(ctx, remote{publisher: publisher, operator: operator, out: os.Stdout}); err != nil {
		return exitRuntime, err
	}
	log.Info("Request accepted", "address", config.ServerAddress, "command", args[0])
	return exitOK, nil
}

func parse(args []string) (command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	switch args[0] {
	case "notify":
		if len(args) != 3 {
			return nil, fmt.Errorf("notify takes 2 arguments")
		}
		userID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user_id: %w", err)
		}
		if !json.Valid([]byte(args[2])) {
			return nil, fmt.Errorf("data is not valid JSON")
		}
		return func(ctx context.Context, r remote) error {
			return r.publisher.NotifyUser(ctx, domain.UserID(userID), json.RawMessage(args[2]))
		}, nil
	case "read":
		if len(args) != 4 {
			return nil, fmt.Errorf("read takes 3 arguments")
		}
		ids, err := parseIDs(args[1:])
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, r remote) error {
			return r.publisher.PublishRead(ctx, domain.ConversationID(ids[0]), domain.UserID(ids[1]), int(ids[2]))
		}, nil
	case "conversation":
		if len(args) < 4 {
			return nil, fmt.Errorf("conversation takes a listing and at least 2 users")
		}
		ids, err := parseIDs(args[1:])
		if err != nil {
			return nil, err
		}
		participants := lo.Map(ids[1:], func(id int64, _ int) domain.UserID { return domain.UserID(id) })
		return func(ctx context.Context, r remote) error {
			conversation, created, err := r.operator.StartConversation(ctx, ids[0], participants...)
			if err != nil {
				return err
			}
			return printJSON(r.out, map[string]any{
				"id":           conversation.ID,
				"listing_id":   conversation.ListingID,
				"participants": conversation.Participants,
				"created":      created,
			})
		}, nil
	case "token":
		if len(args) != 3 {
			return nil, fmt.Errorf("token takes 2 arguments")
		}
		ids, err := parseIDs(args[1:2])
		if err != nil {
			return nil, err
		}
		principal := domain.Principal{ID: domain.UserID(ids[0]), Username: args[2]}
		return func(ctx context.Context, r remote) error {
			token, expiresAt, err := r.operator.IssueToken(ctx, principal)
			if err != nil {
				return err
			}
			res := map[string]any{"token": token}
			if !expiresAt.IsZero() {
				res["expires_at"] = expiresAt.UTC()
			}
			return printJSON(r.out, res)
		}, nil
	case "revoke":
		if len(args) != 2 {
			return nil, fmt.Errorf("revoke takes 1 argument")
		}
		return func(ctx context.Context, r remote) error {
			return r.operator.RevokeToken(ctx, args[1])
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, raw := range args {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ids[i] = v
	}
	return ids, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
