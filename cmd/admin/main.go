package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"strangerchat/backend/internal/api/handler"
	"strangerchat/backend/internal/config"
	"strangerchat/backend/internal/models"
	"strangerchat/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  grant-filter <account_id> [hours]               enable the partner filter (0 or no hours: no expiry)
  revoke-filter <account_id>                      disable the partner filter
  set-profile <account_id> <display_name> <gender> update a profile
  sessions [limit]                                list archived sessions, newest first
  token <account_id>                              issue a connection token for an account`

var errUsage = errors.New(usage)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		if db, err = storage.OpenPostgres(cfg.DatabaseDSN); err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
	}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = storage.OpenRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
	}

	storageSvc := storage.NewStorageService(db, rdb)
	tokens := handler.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	if err := run(os.Args[1:], storageSvc, tokens, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}

func run(args []string, s storage.Storage, tokens *handler.TokenIssuer, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "grant-filter":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		var hours int
		if len(args) == 3 {
			var err error
			if hours, err = strconv.Atoi(args[2]); err != nil || hours < 0 {
				return fmt.Errorf("invalid hours %q", args[2])
			}
		}
		if err := s.GrantFilter(args[1], time.Duration(hours)*time.Hour); err != nil {
			return fmt.Errorf("grant filter: %w", err)
		}
		fmt.Fprintf(out, "Filter enabled for %s.\n", args[1])

	case "revoke-filter":
		if len(args) != 2 {
			return errUsage
		}
		if err := s.RevokeFilter(args[1]); err != nil {
			return fmt.Errorf("revoke filter: %w", err)
		}
		fmt.Fprintf(out, "Filter revoked for %s.\n", args[1])

	case "set-profile":
		if len(args) != 4 {
			return errUsage
		}
		gender := models.ParseAttribute(args[3])
		if err := s.UpdateProfile(args[1], args[2], string(gender)); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		fmt.Fprintf(out, "Profile %s updated (%s, %s).\n", args[1], args[2], gender)

	case "sessions":
		limit := 20
		if len(args) > 1 {
			var err error
			if limit, err = strconv.Atoi(args[1]); err != nil || limit <= 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}
		}
		records, err := s.ListSessionRecords(limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		printSessions(out, records)

	case "token":
		if len(args) != 2 {
			return errUsage
		}
		user, err := s.GetUserByID(args[1])
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if user == nil {
			return fmt.Errorf("account %s not found", args[1])
		}
		token, err := tokens.Issue(uuid.New().String(), user.ID)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(out, token)

	default:
		return errUsage
	}
	return nil
}

func printSessions(out io.Writer, records []models.SessionRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tA\tB\tPERSONA\tSTARTED\tENDED\tREASON")
	for _, r := range records {
		ended := "-"
		if r.EndedAt != nil {
			ended = r.EndedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			r.SessionID, r.ParticipantA, r.ParticipantB, r.WithPersona,
			r.StartedAt.UTC().Format(time.RFC3339), ended, r.EndReason)
	}
	_ = w.Flush()
}
