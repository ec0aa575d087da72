package deploy

import (
	"context"
	"fmt"
	"sync"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/spec"
)

// defaultPoolSize caps concurrent device pushes. Management planes on
// fresh appliances handle little load, so the ceiling is deliberately low.
const defaultPoolSize = 5

type firewallTarget struct {
	fw   spec.FirewallSpec
	host string
}

// runFirewallPool fans targets out over a bounded worker pool. Workers
// send finished results over a channel and only this goroutine writes the
// results map, so entries are write-once per firewall name.
func (c *Coordinator) runFirewallPool(ctx context.Context, targets []firewallTarget, res *Result) {
	if len(targets) == 0 {
		return
	}

	workers := c.poolSize(len(targets))
	c.log.WithField("workers", workers).WithField("firewalls", len(targets)).Info("Configuring firewalls")

	jobs := make(chan firewallTarget)
	results := make(chan *device.Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				results <- c.configureOne(ctx, t)
			}
		}()
	}
	go func() {
		for _, t := range targets {
			jobs <- t
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for fr := range results {
		done++
		res.FirewallResults[fr.Target] = fr
		c.progressEvent(fmt.Sprintf("firewall %s: %s", fr.Target, fr.Status), done, len(targets))
	}
}

func (c *Coordinator) configureOne(ctx context.Context, t firewallTarget) *device.Result {
	fw := t.fw
	client := c.opts.FirewallClient(t.host, device.Credentials{
		Username: fw.Username,
		Password: fw.Password,
	})
	return c.orch.ConfigureFirewall(ctx, client, &fw)
}

func (c *Coordinator) poolSize(n int) int {
	if c.spec.Sequential {
		return 1
	}
	limit := c.spec.Parallelism
	if limit <= 0 {
		limit = defaultPoolSize
	}
	if n < limit {
		return n
	}
	return limit
}
