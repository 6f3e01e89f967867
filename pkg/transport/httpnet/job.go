package httpnet

import (
	"sync"

	"github.com/getmockd/wsbridge/pkg/transport"
)

type result struct {
	resp    *transport.Response
	handled bool
}

// job is one request waiting for its handler to complete.
type job struct {
	handler transport.RequestHandler
	req     *transport.Request
	done    chan result
	once    sync.Once
}

func newJob(h transport.RequestHandler, req *transport.Request) *job {
	return &job{handler: h, req: req, done: make(chan result, 1)}
}

// run invokes the handler. A handler that declines the request yields a
// not-found result; completion after that, or a second completion, is dropped.
func (j *job) run() {
	handled := j.handler(j.req, func(resp *transport.Response) {
		j.finish(result{resp: resp, handled: true})
	})
	if !handled {
		j.finish(result{})
	}
}

func (j *job) finish(r result) {
	j.once.Do(func() {
		j.done <- r
	})
}
