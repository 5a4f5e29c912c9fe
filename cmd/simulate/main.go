package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"billionaire_empire/internal/api"
	"billionaire_empire/internal/business"
	"billionaire_empire/internal/config"
	"billionaire_empire/internal/database"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/game"
	"billionaire_empire/internal/staking"
)

func usage() {
	fmt.Println("Usage: simulate <command> [args...]")
	fmt.Println("Commands:")
	fmt.Println("  status                 - Print player, staking and economy stats")
	fmt.Println("  advance <days>         - Advance the clock (1..max_advance_days)")
	fmt.Println("  ff <days>              - Fast-forward (1..max_fast_forward)")
	fmt.Println("  run <days>             - Advance any number of days in chunks")
	fmt.Println("  daily                  - Process daily events")
	fmt.Println("  event <TYPE>           - Trigger an economic event")
	fmt.Println("  stake <pool> <amount>  - Stake TON into a pool")
	fmt.Println("  unstake <pool> <amount>")
	fmt.Println("  claim                  - Claim staking rewards")
	fmt.Println("  buy <business_type>    - Buy a business")
	fmt.Println("  reset                  - Delete the saved game")
	fmt.Println()
	fmt.Println("SIM_PLAYER selects the player (default: simulator).")
	fmt.Println("Use STORE_BACKEND=file (or sql/postgres/redis) to keep the game between runs.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg := config.Load()
	rules, err := config.LoadRules(cfg.BalanceFile)
	if err != nil {
		log.Fatalf("Failed to load balance rules: %v", err)
	}

	ctx := context.Background()
	store, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}

	sessions := api.NewSessions(store, api.SessionOptions{
		Rules:     rules,
		KeyPrefix: cfg.StateKeyPrefix,
		Seed:      cfg.RandomSeed,
	})
	playerID := os.Getenv("SIM_PLAYER")
	if playerID == "" {
		playerID = "simulator"
	}

	out, runErr := run(ctx, sessions, playerID, os.Args[1], os.Args[2:])
	if runErr == nil && os.Args[1] != "reset" {
		runErr = sessions.Save(ctx, playerID)
	}
	if err := store.Close(); err != nil {
		log.Printf("store close: %v", err)
	}
	if runErr != nil {
		log.Fatalf("%s: %v", os.Args[1], runErr)
	}
	if out != nil {
		printJSON(out)
	}
}

func run(ctx context.Context, sessions *api.Sessions, playerID, command string, args []string) (interface{}, error) {
	if command == "reset" {
		if err := sessions.Reset(ctx, playerID); err != nil {
			return nil, err
		}
		fmt.Printf("Game of %s deleted\n", playerID)
		return nil, nil
	}

	eng, err := sessions.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	switch command {
	case "status":
		return status(eng), nil

	case "advance", "ff":
		days, err := intArg(args, 0, "days")
		if err != nil {
			return nil, err
		}
		if command == "ff" {
			return eng.FastForward(days)
		}
		return eng.AdvanceTime(days)

	case "run":
		days, err := intArg(args, 0, "days")
		if err != nil {
			return nil, err
		}
		return runDays(eng, days)

	case "daily":
		return eng.ProcessDailyEvents()

	case "event":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: event <TYPE>")
		}
		return eng.TriggerEconomicEvent(events.Type(args[0]))

	case "stake", "unstake":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: %s <pool> <amount>", command)
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		if command == "stake" {
			return eng.StakeTokens(staking.PoolID(args[0]), amount)
		}
		return eng.UnstakeTokens(staking.PoolID(args[0]), amount)

	case "claim":
		amount, err := eng.ClaimStakingRewards()
		return map[string]float64{"claimed": amount}, err

	case "buy":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: buy <business_type>")
		}
		return eng.AddBusiness(business.Type(args[0]))

	default:
		usage()
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

type runSummary struct {
	Days       int                `json:"days"`
	Months     int                `json:"months"`
	Revenue    float64            `json:"revenue"`
	Expenses   float64            `json:"expenses"`
	Rewards    float64            `json:"rewards_accrued"`
	NewEvents  []events.Event     `json:"new_events"`
	FinalState map[string]any     `json:"final_state"`
	Economy    game.EconomicStats `json:"economy"`
}

// runDays advances in chunks of at most Rules.MaxAdvanceDays.
func runDays(eng *game.Engine, days int) (runSummary, error) {
	if days < 1 {
		return runSummary{}, fmt.Errorf("%w: %d", game.ErrInvalidDays, days)
	}
	limit := eng.Rules().MaxAdvanceDays
	sum := runSummary{}
	for left := days; left > 0; {
		step := min(left, limit)
		res, err := eng.AdvanceTime(step)
		if err != nil {
			return sum, err
		}
		if res.Paused {
			log.Printf("⏸️ game is paused, stopped after %d days", sum.Days)
			break
		}
		sum.Days += res.Days
		sum.Months += len(res.Months)
		sum.Rewards += res.RewardsAccrued
		for _, m := range res.Months {
			sum.Revenue += m.Revenue
			sum.Expenses += m.Expenses
		}
		sum.NewEvents = append(sum.NewEvents, res.Daily.NewEvents...)
		left -= step
	}
	sum.FinalState = status(eng)
	sum.Economy = eng.GetEconomicStats()
	return sum, nil
}

func status(eng *game.Engine) map[string]any {
	return map[string]any{
		"player":     eng.GetPlayerStats(),
		"staking":    eng.GetStakingStats(),
		"businesses": eng.GetBusinessStats(),
		"banking":    eng.GetBankingStats(),
	}
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(data))
}
