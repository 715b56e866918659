package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/mcules/ransomguard/internal/grpcapi"
	"github.com/mcules/ransomguard/internal/inference"
)

// Exit codes: 0 all benign, 1 ransomware found, 2 some files failed.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scan PATH...")
		os.Exit(2)
	}

	serverAddr := envOr("SCAN_SERVER_ADDR", "localhost:9090")
	maxBytes := int64(envOrInt("SCAN_MAX_MB", 64)) << 20

	conn, err := grpc.NewClient(serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(int(maxBytes)+(1<<20))),
	)
	if err != nil {
		log.Fatalf("grpc dial: %v", err)
	}
	defer conn.Close()

	s := &scanner{
		client:   grpcapi.NewClient(conn, os.Getenv("RANSOMGUARD_API_KEY")),
		workers:  envOrInt("SCAN_WORKERS", 4),
		maxBytes: maxBytes,
		timeout:  time.Duration(envOrInt("SCAN_TIMEOUT_SECONDS", 30)) * time.Second,
		out:      os.Stdout,
	}
	sum := s.run(context.Background(), os.Args[1:])
	fmt.Fprintf(os.Stderr, "scanned %d files: %d benign, %d ransomware, %d failed\n",
		sum.benign+sum.ransomware+sum.failed, sum.benign, sum.ransomware, sum.failed)

	switch {
	case sum.ransomware > 0:
		os.Exit(1)
	case sum.failed > 0:
		os.Exit(2)
	}
}

type fileClassifier interface {
	PredictFile(ctx context.Context, data []byte, opts ...grpc.CallOption) (grpcapi.Prediction, error)
}

type scanner struct {
	client   fileClassifier
	workers  int
	maxBytes int64
	timeout  time.Duration
	out      io.Writer
}

type summary struct {
	benign, ransomware, failed int
}

func (s *scanner) run(ctx context.Context, roots []string) summary {
	var (
		mu  sync.Mutex
		sum summary
		wg  sync.WaitGroup
	)
	fail := func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		sum.failed++
		fmt.Fprintf(s.out, "error\t%s\t%s\n", path, errorMessage(err))
	}

	paths := make(chan string)
	go func() {
		defer close(paths)
		for _, root := range roots {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					fail(path, err)
					return nil
				}
				if d.Type().IsRegular() {
					paths <- path
				}
				return nil
			})
			if err != nil {
				fail(root, err)
			}
		}
	}()

	workers := max(s.workers, 1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				line, label, err := s.scanFile(ctx, path)
				if err != nil {
					fail(path, err)
					continue
				}

				mu.Lock()
				if label == inference.LabelBenign {
					sum.benign++
				} else {
					sum.ransomware++
				}
				fmt.Fprintln(s.out, line)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return sum
}

func (s *scanner) scanFile(ctx context.Context, path string) (string, inference.Label, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", err
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return "", "", fmt.Errorf("file larger than %d bytes", s.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	p, err := s.client.PredictFile(ctx, data)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%s\t%s\t%s", p.Label, path, p.SHA256), p.Label, nil
}

func errorMessage(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envOrInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
