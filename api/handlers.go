// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/go-chi/chi/v5"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusFor maps an error kind to a response status
func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindInvalidArgument:
		return http.StatusBadRequest
	case failure.KindLedgerCall:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	err error,
) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(
			message,
			"error", err,
			"path", r.URL.Path,
		)
		writeError(w, status, message)
		return
	}
	writeError(w, status, err.Error())
}

// actor resolves the username path parameter, writing the error response
// when it fails
func (s *Server) actor(
	w http.ResponseWriter,
	r *http.Request,
) (models.Actor, bool) {
	actor, err := s.source.Actor(chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, "failed to look up actor", err)
		return actor, false
	}
	return actor, true
}

func (s *Server) pagination(
	w http.ResponseWriter,
	r *http.Request,
	naturalOrder string,
) (PaginationParams, bool) {
	params, err := ParsePagination(r, naturalOrder)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return params, false
	}
	return params, true
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleActorTransactions handles GET /actors/{username}/transactions. Rows
// are listed most recent first unless order=asc
func (s *Server) handleActorTransactions(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, ok := s.pagination(w, r, PaginationOrderDesc)
	if !ok {
		return
	}
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	txs, err := s.source.Transactions(actor)
	if err != nil {
		s.fail(w, r, "failed to list transactions", err)
		return
	}
	page := paginate(txs, PaginationOrderDesc, params)
	ret := make([]TransactionResponse, 0, len(page))
	for _, tx := range page {
		ret = append(ret, newTransactionResponse(tx))
	}
	SetPaginationHeaders(w, len(txs), params)
	writeJSON(w, http.StatusOK, ret)
}

// handleActorActivities handles GET /actors/{username}/activities with an
// optional state filter
func (s *Server) handleActorActivities(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, ok := s.pagination(w, r, PaginationOrderAsc)
	if !ok {
		return
	}
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	state := models.RecordState(
		strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state"))),
	)
	records, err := s.source.Records(actor, state)
	if err != nil {
		s.fail(w, r, "failed to list activity records", err)
		return
	}
	s.writeRecords(w, records, params)
}

// handlePendingActivities handles GET /activities/pending
func (s *Server) handlePendingActivities(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, ok := s.pagination(w, r, PaginationOrderAsc)
	if !ok {
		return
	}
	records, err := s.source.PendingRecords()
	if err != nil {
		s.fail(w, r, "failed to list pending activity records", err)
		return
	}
	s.writeRecords(w, records, params)
}

func (s *Server) writeRecords(
	w http.ResponseWriter,
	records []models.ActivityRecord,
	params PaginationParams,
) {
	page := paginate(records, PaginationOrderAsc, params)
	ret := make([]ActivityRecordResponse, 0, len(page))
	for _, record := range page {
		ret = append(ret, newActivityRecordResponse(record))
	}
	SetPaginationHeaders(w, len(records), params)
	writeJSON(w, http.StatusOK, ret)
}

// handleActorBalance handles GET /actors/{username}/balance. The balance is
// read from the ledger on every request
func (s *Server) handleActorBalance(
	w http.ResponseWriter,
	r *http.Request,
) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	balance, err := s.source.Balance(r.Context(), actor)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		s.fail(w, r, "failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Username: actor.Username,
		Address:  actor.Address,
		Balance:  balance,
	})
}
