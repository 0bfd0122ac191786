package main

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	app_service "onchain-intel/internal/application/service"
	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
	"onchain-intel/internal/infrastructure/messaging"
)

// shardFor maps an address to a worker so fragments of one address apply in arrival order
func shardFor(address string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(entity.CanonicalAddress(address)))
	return int(h.Sum32() % uint32(workers))
}

// processFragments fans fragments out to a worker pool, sharded by address
func processFragments(
	ctx context.Context,
	msgChan <-chan *messaging.FragmentMessage,
	done <-chan struct{},
	addresses *app_service.AddressService,
	workerCount int,
	log *logger.Logger,
) {
	if workerCount <= 0 {
		workerCount = 1
	}

	jobs := make([]chan *messaging.FragmentMessage, workerCount)
	var wg sync.WaitGroup

	for i := range jobs {
		jobs[i] = make(chan *messaging.FragmentMessage, 64)
		wg.Add(1)
		go func(workerID int, jobChan <-chan *messaging.FragmentMessage) {
			defer wg.Done()
			log.Debug("Starting fragment worker", zap.Int("worker_id", workerID))

			for msg := range jobChan {
				_, err := addresses.ApplyFragment(ctx, msg.Address, msg.Source, msg.Fragment)
				switch {
				case err == nil:
				case errors.Is(err, entity.ErrNotFound):
					log.Debug("Fragment for untracked address dropped",
						zap.String("address", entity.CanonicalAddress(msg.Address)),
						zap.String("source", msg.Source))
				default:
					log.Error("Failed to apply fragment",
						zap.Error(err),
						zap.Int("worker_id", workerID),
						zap.String("address", entity.CanonicalAddress(msg.Address)))
				}
			}
		}(i, jobs[i])
	}

	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg := <-msgChan:
			if msg == nil {
				continue
			}
			select {
			case jobs[shardFor(msg.Address, workerCount)] <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}
