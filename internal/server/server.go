// Package server exposes the radio over a small JSON control API. It is one
// observer surface among potentially several; all state lives behind the
// player façade and the API re-queries it on every request.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/lemon-codes/netradio/internal/metadata"
	"github.com/lemon-codes/netradio/internal/models"
	"github.com/lemon-codes/netradio/internal/player"
)

// Controller abstracts the player façade for the HTTP handlers.
type Controller interface {
	AllStations() []models.Station
	FindStations(term string) []models.Station
	AddStation(name, uri string) (int, error)
	RemoveStation(id int) (bool, error)
	SetFavourite(id int, favourite bool) error
	SelectStation(id int) error
	Play() error
	Stop()
	SetVolume(level int) error
	Volume() int
	State() player.State
	CurrentStation() (models.Station, bool)
	Metadata() *metadata.Observable
}

type serverHandler struct {
	radio  Controller
	logger *log.Logger
}

// New creates the HTTP handler for the control API.
func New(radio Controller, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &serverHandler{
		radio:  radio,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/stations", h.handleStations)
	mux.HandleFunc("/stations/", h.handleStation)
	mux.HandleFunc("/playback", h.handlePlayback)
	mux.HandleFunc("/playback/select", h.handleSelect)
	mux.HandleFunc("/playback/play", h.handlePlay)
	mux.HandleFunc("/playback/stop", h.handleStop)
	mux.HandleFunc("/playback/volume", h.handleVolume)
	mux.HandleFunc("/now", h.handleNowPlaying)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *serverHandler) handleStations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var stations []models.Station
		if term, ok := r.URL.Query()["q"]; ok {
			stations = h.radio.FindStations(strings.Join(term, " "))
		} else {
			stations = h.radio.AllStations()
		}
		if stations == nil {
			stations = []models.Station{}
		}
		h.writeJSON(w, stations)

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
			URI  string `json:"uri"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id, err := h.radio.AddStation(body.Name, body.URI)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(map[string]int{"id": id}); err != nil {
			h.logger.Printf("failed to encode response: %v", err)
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleStation serves /stations/{id} and /stations/{id}/favourite.
func (h *serverHandler) handleStation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/stations/")
	idPart, action, _ := strings.Cut(rest, "/")

	id, err := strconv.Atoi(idPart)
	if err != nil || id < 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		removed, err := h.radio.RemoveStation(id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !removed {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "favourite" && r.Method == http.MethodPut:
		var body struct {
			Favourite bool `json:"favourite"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.radio.SetFavourite(id, body.Favourite); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *serverHandler) handlePlayback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"state":  h.radio.State().String(),
		"volume": h.radio.Volume(),
	}
	if current, ok := h.radio.CurrentStation(); ok {
		response["station"] = current
	}
	h.writeJSON(w, response)
}

func (h *serverHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.radio.SelectStation(body.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *serverHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.radio.Play(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *serverHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.radio.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *serverHandler) handleVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Volume int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.radio.SetVolume(body.Volume); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *serverHandler) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	meta := h.radio.Metadata()
	fields := make(map[string]string)
	for field, value := range meta.Snapshot() {
		if value != "" {
			fields[string(field)] = value
		}
	}

	response := map[string]any{
		"state":    h.radio.State().String(),
		"metadata": fields,
	}
	if uri := meta.StreamURI(); uri != "" {
		response["stream_uri"] = uri
	}
	if current, ok := h.radio.CurrentStation(); ok {
		response["station"] = current
	}
	h.writeJSON(w, response)
}

func (h *serverHandler) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Printf("failed to encode response: %v", err)
	}
}

func (h *serverHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrIllegalState):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encodeErr != nil {
		h.logger.Printf("failed to encode error response: %v", encodeErr)
	}
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		logger.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	})
}
