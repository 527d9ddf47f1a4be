/*
	Basic Script that churns creates, updates and deletes with short TTLs
	against a running slotkv server, to exercise slot reuse.
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/0xRadioAc7iv/go-slotkv/slotkv"
)

const (
	concurrency = 6

	// Fixed universe
	totalKeys   = 100
	totalValues = 100

	// Per-cycle behavior
	keysPerCycleWrite  = 20
	keysPerCycleDelete = 10
	cyclesPerWorker    = 5000

	sleepBetweenCycles = 10 * time.Millisecond

	progressEvery = 500
)

func main() {
	host := flag.String("host", "127.0.0.1", "slotkv server host")
	port := flag.Int("port", 9999, "slotkv server port")
	flag.Parse()

	start := time.Now()
	fmt.Println("Starting slotkv churn-heavy load generator")

	keys := makeKeys(totalKeys)
	values := makeValues(totalValues)

	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, *host, *port, keys, values)
		}(i)
	}

	wg.Wait()
	fmt.Printf("Load finished in %v\n", time.Since(start))
}

func runWorker(id int, host string, port int, keys []string, values []string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	client, err := slotkv.Connect(slotkv.WithHost(host), slotkv.WithPort(port))
	if err != nil {
		fmt.Printf("[worker %d] connect error: %v\n", id, err)
		return
	}
	defer client.Close()

	for cycle := 1; cycle <= cyclesPerWorker; cycle++ {

		// ---- CREATE / UPDATE PHASE ----
		for i := 0; i < keysPerCycleWrite; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]
			ttl := time.Duration(rng.Intn(5)) * time.Second

			if err := upsert(client, key, val, ttl); err != nil {
				fmt.Printf("[worker %d] write error: %v\n", id, err)
				return
			}
		}

		// ---- DELETE PHASE ----
		for i := 0; i < keysPerCycleDelete; i++ {
			key := keys[rng.Intn(len(keys))]

			if _, err := client.Delete(key); err != nil {
				fmt.Printf("[worker %d] DELETE error: %v\n", id, err)
				return
			}
		}

		// ---- REWRITE PHASE (keys without TTL) ----
		for i := 0; i < keysPerCycleWrite/2; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := upsert(client, key, val, 0); err != nil {
				fmt.Printf("[worker %d] REWRITE error: %v\n", id, err)
				return
			}
		}

		if cycle%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d cycles\n", id, cycle)
		}

		if sleepBetweenCycles > 0 {
			time.Sleep(sleepBetweenCycles)
		}
	}
}

// upsert creates key, falling back to update when another worker got
// there first. Losing a race the other way round is not an error either.
func upsert(client *slotkv.Client, key, val string, ttl time.Duration) error {
	_, err := client.Create(key, val, ttl)
	if err == nil || !errors.Is(err, slotkv.ErrServer) {
		return err
	}

	_, err = client.Update(key, val, ttl)
	if err != nil && errors.Is(err, slotkv.ErrServer) {
		return nil
	}
	return err
}

func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key-%03d", i)
	}
	return keys
}

func makeValues(n int) []string {
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = fmt.Sprintf(`{"id":%d,"payload":"value-%03d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"}`, i, i)
	}
	return values
}
