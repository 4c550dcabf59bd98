// Command page_server serves HTML pages with controllable latency and status
// codes, for running loadsweep against a local target:
//
//	go run ./scripts/testservers/page_server --port 8080 --delay 150ms --jitter 50ms
//	loadsweep --target http://localhost:8080/ --levels 1,5,10 -n 3
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const page = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>loadsweep sample</title></head>
<body><main id="app"><h1>Sample page</h1><p>Served after %s.</p></main></body>
</html>
`

type pageServer struct {
	delay  time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	delay := flag.Duration("delay", 100*time.Millisecond, "Base latency before a page is served")
	jitter := flag.Duration("jitter", 0, "Random extra latency added to each page (0..jitter)")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	s := &pageServer{
		delay:  *delay,
		jitter: *jitter,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/slow", s.handleSlow)
	mux.HandleFunc("/status/", handleStatus)

	addr := fmt.Sprintf(":%d", *port)
	log.WithFields(log.Fields{"addr": addr, "delay": *delay, "jitter": *jitter}).Info("page server listening")
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (s *pageServer) wait() time.Duration {
	d := s.delay
	if s.jitter > 0 {
		s.mu.Lock()
		d += time.Duration(s.rnd.Int63n(int64(s.jitter)))
		s.mu.Unlock()
	}
	return d
}

func (s *pageServer) handlePage(w http.ResponseWriter, r *http.Request) {
	writePage(w, r, s.wait())
}

// handleSlow serves a page after ?ms= milliseconds, defaulting to the
// server's configured latency.
func (s *pageServer) handleSlow(w http.ResponseWriter, r *http.Request) {
	d := s.wait()
	if raw := r.URL.Query().Get("ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			http.Error(w, "ms must be a non-negative integer", http.StatusBadRequest)
			return
		}
		d = time.Duration(ms) * time.Millisecond
	}
	writePage(w, r, d)
}

// handleStatus answers /status/{code} with that status code.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "status code must be between 100 and 599", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}

func writePage(w http.ResponseWriter, r *http.Request, d time.Duration) {
	select {
	case <-time.After(d):
	case <-r.Context().Done():
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, d)
}
