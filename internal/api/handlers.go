package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/business"
	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/game"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/market"
	"billionaire_empire/internal/staking"
)

// SuccessResponse - обертка успешного ответа
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return NewValidationError("Invalid JSON body", map[string]interface{}{"reason": err.Error()})
	}
	return nil
}

func (s *Server) engine(r *http.Request) (string, *game.Engine, error) {
	id, err := playerFrom(r.Context())
	if err != nil {
		return "", nil, NewUnauthorizedError(err.Error())
	}
	eng, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		return id, nil, err
	}
	return id, eng, nil
}

// query answers with fn's result; nothing is persisted.
func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(eng *game.Engine) interface{}) {
	_, eng, err := s.engine(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeOK(w, fn(eng))
}

// mutate runs a state-changing operation. Engine errors become 4xx
// rejections; on success the session is marked dirty (and saved with autosave).
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(eng *game.Engine) (interface{}, error)) {
	id, eng, err := s.engine(r)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	out, err := fn(eng)
	if err != nil {
		s.errors.HandleError(w, r, reject(err))
		return
	}
	if err := s.sessions.Touch(r.Context(), id); err != nil {
		// состояние в памяти уже изменено, сохранится при вытеснении
		log.Printf("api: autosave for %s failed: %v", id, err)
	}
	writeOK(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"sessions": s.sessions.Len(),
	}
	if s.metrics != nil {
		if summary, err := s.metrics.GetMetricsSummary(); err == nil {
			body["metrics"] = summary
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// State

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.Snapshot() })
}

func (s *Server) handleRestoreState(w http.ResponseWriter, r *http.Request) {
	var st game.State
	if err := decode(r, &st); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		if st.PlayerID != eng.PlayerID() {
			return nil, fmt.Errorf("%w: state belongs to %q", game.ErrInvalidInput, st.PlayerID)
		}
		if err := eng.Restore(&st); err != nil {
			return nil, err
		}
		return eng.GetPlayerStats(), nil
	})
}

func (s *Server) handleResetState(w http.ResponseWriter, r *http.Request) {
	id, err := playerFrom(r.Context())
	if err != nil {
		s.errors.HandleError(w, r, NewUnauthorizedError(err.Error()))
		return
	}
	if err := s.sessions.Reset(r.Context(), id); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeOK(w, map[string]string{"player_id": id, "status": "reset"})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetPlayerStats() })
}

// Staking

type stakeRequest struct {
	Pool   staking.PoolID `json:"pool"`
	Amount float64        `json:"amount"`
}

func (s *Server) handleStakingStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetStakingStats() })
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.StakeTokens(req.Pool, req.Amount)
	})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.UnstakeTokens(req.Pool, req.Amount)
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		claimed, err := eng.ClaimStakingRewards()
		return map[string]float64{"claimed": claimed}, err
	})
}

// Governance

type voteRequest struct {
	Support *bool `json:"support"`
}

func (s *Server) handleGovernanceStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetGovernanceStats() })
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req governance.Draft
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.SubmitProposal(req)
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	if req.Support == nil {
		s.errors.HandleError(w, r, NewValidationError("support is required", nil))
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.VoteOnProposal(id, *req.Support)
	})
}

// Businesses

type addBusinessRequest struct {
	Type business.Type `json:"type"`
}

type upgradeRequest struct {
	Kind business.UpgradeKind `json:"kind"`
}

type hireRequest struct {
	Role business.Role `json:"role"`
}

type supplyRequest struct {
	Resource market.ResourceID `json:"resource"`
	Quantity float64           `json:"quantity"`
	Months   int               `json:"months"`
}

func (s *Server) handleBusinessStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetBusinessStats() })
}

func (s *Server) handleAddBusiness(w http.ResponseWriter, r *http.Request) {
	var req addBusinessRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.AddBusiness(req.Type)
	})
}

func (s *Server) handleUpgradeBusiness(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.UpgradeBusiness(id, req.Kind)
	})
}

func (s *Server) handleHireStaff(w http.ResponseWriter, r *http.Request) {
	var req hireRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.HireStaff(id, req.Role)
	})
}

func (s *Server) handleSupplyDeal(w http.ResponseWriter, r *http.Request) {
	var req supplyRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.SignSupplyDeal(id, req.Resource, req.Quantity, req.Months)
	})
}

func (s *Server) handleSellBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		price, err := eng.SellBusiness(id)
		return map[string]float64{"sale_price": price}, err
	})
}

// Banking

type accountRequest struct {
	Kind banking.AccountKind `json:"kind"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type loanRequest struct {
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"term_months"`
}

func (s *Server) handleBankingStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetBankingStats() })
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.OpenAccount(req.Kind)
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.Deposit(id, req.Amount)
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.Withdraw(id, req.Amount)
	})
}

func (s *Server) handleLoanEligibility(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("amount")), 64)
	if err != nil {
		s.errors.HandleError(w, r, NewValidationError("amount query parameter must be a number", nil))
		return
	}
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.LoanEligibility(amount) })
}

func (s *Server) handleTakeLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.TakeLoan(req.Amount, req.TermMonths)
	})
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		paid, err := eng.RepayLoan(id, req.Amount)
		return map[string]float64{"paid": paid}, err
	})
}

// Lifestyle

type housingRequest struct {
	Tier economy.HousingTier `json:"tier"`
}

type educationRequest struct {
	Level economy.EducationLevel `json:"level"`
}

type relationshipRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type communityRequest struct {
	Players int `json:"players"`
}

func (s *Server) handleSetHousing(w http.ResponseWriter, r *http.Request) {
	var req housingRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.SetHousing(req.Tier)
	})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req educationRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.Enroll(req.Level)
	})
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	var req relationshipRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.AddRelationship(req.Name, req.Kind)
	})
}

func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	var req communityRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		if err := eng.SetCommunityPlayers(req.Players); err != nil {
			return nil, err
		}
		return eng.GetBusinessStats(), nil
	})
}

// Time

type daysRequest struct {
	Days int `json:"days"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request, fn func(eng *game.Engine, days int) (game.AdvanceResult, error)) {
	var req daysRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		res, err := fn(eng, req.Days)
		if err == nil && s.metrics != nil {
			s.metrics.RecordAdvance(res)
		}
		return res, err
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, (*game.Engine).AdvanceTime)
}

func (s *Server) handleFastForward(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, (*game.Engine).FastForward)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		if err := eng.Pause(); err != nil {
			return nil, err
		}
		return eng.GetPlayerStats().Time, nil
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		if err := eng.Resume(); err != nil {
			return nil, err
		}
		return eng.GetPlayerStats().Time, nil
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		if err := eng.SetSpeed(req.Multiplier); err != nil {
			return nil, err
		}
		return eng.GetPlayerStats().Time, nil
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.ProcessDailyEvents()
	})
}

// Events and economy

type triggerRequest struct {
	Type events.Type `json:"type"`
}

func (s *Server) handleTriggerEvent(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decode(r, &req); err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.TriggerEconomicEvent(req.Type)
	})
}

func (s *Server) handleEconomicStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetEconomicStats() })
}

// Achievements

func (s *Server) handleAchievementStats(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(eng *game.Engine) interface{} { return eng.GetAchievementStats() })
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(eng *game.Engine) (interface{}, error) {
		return eng.CheckAndAwardAchievements()
	})
}
