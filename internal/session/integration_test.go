package session

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/config"
	"github.com/signalnine/deskmate/internal/connectivity"
	"github.com/signalnine/deskmate/internal/interpret"
	"github.com/signalnine/deskmate/internal/stub"
)

// TestIntegrationStubRoundTrip drives the engine through the real client
// against the stub service over TLS, then checks the job was recorded.
func TestIntegrationStubRoundTrip(t *testing.T) {
	// 1. Generate self-signed TLS certificate for the test
	tempDir := t.TempDir()
	certFile, keyFile := generateTestCert(t, tempDir)

	// 2. Start the stub service on an ephemeral port
	stubCfg := &config.StubConfig{
		ListenAddr:      "127.0.0.1:0",
		DBPath:          filepath.Join(tempDir, "test.db"),
		MaxPayloadBytes: 1 << 20,
		UploadDir:       filepath.Join(tempDir, "uploads"),
		TLSCert:         certFile,
		TLSKey:          keyFile,
	}
	srv, err := stub.NewServer(stubCfg, testOptions().Logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := srv.RunAndGetAddr(ctx)
	if err != nil {
		t.Fatalf("RunAndGetAddr: %v", err)
	}

	// 3. Client that skips TLS verification (self-signed cert)
	cfg := config.Default()
	cfg.BaseURL = "https://" + addr
	cfg.TLSSkipVerify = true
	state := connectivity.NewState()
	client := agent.New(cfg, state, testOptions().Logger)

	monitor := connectivity.NewMonitor(client, state, cfg.HealthTimeout, testOptions().Logger)
	if got := monitor.Probe(ctx); got != connectivity.Reachable {
		t.Fatalf("startup probe = %v, want reachable", got)
	}

	// 4. Submit through the engine
	e := NewEngine(client, testOptions())
	entry, err := e.Ask(ctx, "what time is it")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if entry.Kind != KindAssistant {
		t.Fatalf("entry = %+v, want assistant", entry)
	}
	if len(entry.Units) != 1 || entry.Units[0].Label != "Current Time" || entry.Units[0].Kind != interpret.KindSuccess {
		t.Errorf("Units = %+v", entry.Units)
	}
	if entry.Response.JobID == "" {
		t.Error("response has no job id")
	}

	// 5. System info comes back as cards
	entry, _ = e.Ask(ctx, "system info")
	if entry.Kind != KindAssistant || entry.Units[0].Kind != interpret.KindSystemInfo {
		t.Errorf("system info entry = %+v", entry)
	}

	// 6. Verify both jobs are in the service history
	jobs, err := client.Jobs(ctx)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	job, err := client.Job(ctx, jobs[1].JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if stored := job.DecodeResult(); stored == nil || stored.Command != "what time is it" {
		t.Errorf("stored result = %+v", stored)
	}

	// 7. Upload a file and see it listed
	notes := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(notes, []byte("meeting at noon"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := client.UploadFile(ctx, notes); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	files, err := client.Files(ctx)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Filename != "notes.txt" {
		t.Errorf("files = %+v", files)
	}

	if e.Len() != 4 || state.Status() != connectivity.Reachable {
		t.Errorf("log length = %d, state = %v", e.Len(), state.Status())
	}
}

// TestIntegrationTimeoutThenRecovery covers a query that times out, which
// marks the service unreachable until the next health probe succeeds.
func TestIntegrationTimeoutThenRecovery(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == agent.QueryPath {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer backend.Close()
	defer close(release)

	cfg := config.Default()
	cfg.BaseURL = backend.URL
	cfg.QueryTimeout = 100 * time.Millisecond
	state := connectivity.NewState()
	client := agent.New(cfg, state, testOptions().Logger)
	monitor := connectivity.NewMonitor(client, state, time.Second, testOptions().Logger)

	e := NewEngine(client, testOptions())
	entry, err := e.Ask(context.Background(), "slow command")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if entry.Kind != KindError || entry.ErrorKind != agent.KindConnectivity {
		t.Fatalf("entry = %+v, want connectivity error", entry)
	}
	if entry.Message != "No response from server. Check if backend is running." {
		t.Errorf("Message = %q", entry.Message)
	}
	if state.Status() != connectivity.Unreachable {
		t.Fatalf("state after timeout = %v, want unreachable", state.Status())
	}

	if got := monitor.Probe(context.Background()); got != connectivity.Reachable {
		t.Errorf("probe = %v, want reachable", got)
	}
	if state.Status() != connectivity.Reachable {
		t.Errorf("state after probe = %v, want reachable", state.Status())
	}
}

// generateTestCert creates a self-signed TLS certificate for testing
func generateTestCert(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("Create certificate: %v", err)
	}

	certFile = filepath.Join(dir, "cert.pem")
	certOut, err := os.Create(certFile)
	if err != nil {
		t.Fatalf("Create cert file: %v", err)
	}
	pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	certOut.Close()

	keyFile = filepath.Join(dir, "key.pem")
	keyOut, err := os.Create(keyFile)
	if err != nil {
		t.Fatalf("Create key file: %v", err)
	}
	privBytes, _ := x509.MarshalECPrivateKey(priv)
	pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes})
	keyOut.Close()

	return certFile, keyFile
}
