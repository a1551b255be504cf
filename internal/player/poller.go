package player

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/itchyny/gojq"
	"github.com/rs/zerolog/log"
)

const (
	pollerTick        = 3 * time.Second
	pollerDefaultWait = 10 * time.Second
	pollerHTTPTimeout = 30 * time.Second
)

// FetchTask is one consumer of a polled URL: a jq filter over the fetched
// body and a save callback. Save receives the filtered value (nil when the
// filter produced null or the body was unusable) and returns the minimum
// number of seconds before its source should be polled again.
type FetchTask struct {
	Filter string
	Save   func(value interface{}) int
}

// Poller periodically fetches the stream player's metadata sources. It
// wakes on a coarse tick and compares against a deadline, so changing the
// schedule never needs to interrupt a sleep.
type Poller struct {
	mu        sync.Mutex
	client    *http.Client
	dynamic   map[string][]FetchTask
	nextFetch time.Time
	suspended bool
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewPoller() *Poller {
	return &Poller{
		client:    &http.Client{Timeout: pollerHTTPTimeout},
		suspended: true,
		stop:      make(chan struct{}),
	}
}

// Start launches the polling goroutine. It runs until Close.
func (p *Poller) Start() {
	go p.run()
}

func (p *Poller) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Poller) run() {
	ticker := time.NewTicker(pollerTick)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		due := !p.suspended && !time.Now().Before(p.nextFetch)
		tasks := p.dynamic
		p.mu.Unlock()
		if !due {
			continue
		}

		wait := p.pollOnce(tasks)

		p.mu.Lock()
		p.nextFetch = time.Now().Add(wait)
		p.mu.Unlock()
	}
}

// SetDynamicInfo replaces the polled sources and schedules an immediate
// fetch.
func (p *Poller) SetDynamicInfo(dynamic map[string][]FetchTask) {
	p.mu.Lock()
	p.dynamic = dynamic
	p.nextFetch = time.Time{}
	p.suspended = len(dynamic) == 0
	p.mu.Unlock()
}

// Wake resumes polling with an immediate fetch.
func (p *Poller) Wake() {
	p.mu.Lock()
	p.nextFetch = time.Time{}
	p.suspended = p.dynamic == nil
	p.mu.Unlock()
}

// Suspend tells every save callback to show not-playing and stops polling
// until the next Wake or SetDynamicInfo.
func (p *Poller) Suspend() {
	p.mu.Lock()
	tasks := p.dynamic
	p.suspended = true
	p.mu.Unlock()

	for _, taskList := range tasks {
		for _, task := range taskList {
			task.Save(nil)
		}
	}
}

// pollOnce fetches every distinct URL once, feeds each of its tasks, and
// returns the shortest revisit interval the saves asked for. The default
// applies only when no save produced one, such as after a failed fetch.
func (p *Poller) pollOnce(tasks map[string][]FetchTask) time.Duration {
	var wait time.Duration
	for url, taskList := range tasks {
		body := p.fetch(url)
		for _, task := range taskList {
			value := applyFilter(task.Filter, body)
			if delta := task.Save(value); delta > 0 {
				if d := time.Duration(delta) * time.Second; wait == 0 || d < wait {
					wait = d
				}
			}
		}
	}
	if wait == 0 {
		wait = pollerDefaultWait
	}
	return wait
}

func (p *Poller) fetch(url string) interface{} {
	resp, err := p.client.Get(url)
	if err != nil {
		log.Warn().Str("url", url).Err(err).Msg("now-playing fetch failed")
		return nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Str("url", url).Err(err).Msg("now-playing read failed")
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Warn().Str("url", url).Err(err).Msg("now-playing body is not JSON")
		return nil
	}
	return decoded
}

// applyFilter runs a jq expression over the decoded body. An empty or
// unparsable filter passes the body through; a null result maps to nil.
func applyFilter(filter string, body interface{}) interface{} {
	if body == nil {
		return nil
	}
	if filter == "" {
		return body
	}
	query, err := gojq.Parse(filter)
	if err != nil {
		log.Warn().Str("filter", filter).Err(err).Msg("bad now-playing filter")
		return body
	}
	iter := query.Run(body)
	value, ok := iter.Next()
	if !ok {
		return nil
	}
	if _, isErr := value.(error); isErr {
		return nil
	}
	return value
}
