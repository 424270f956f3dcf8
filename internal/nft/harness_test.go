package nft_test

import (
	"testing"

	"nft-go/internal/database"
	"nft-go/internal/nft"
	"nft-go/internal/publisher"
	"nft-go/internal/testutil"
)

type harness struct {
	svc       *nft.NFTService
	ledger    *testutil.FlakyLedger
	journal   *database.SQLiteJournal
	publisher *publisher.MemoryPublisher
	contract  *testutil.FakeContract
	fetcher   *testutil.StubFetcher
	generator *testutil.StubGenerator
	logger    *testutil.RecordingLogger
	clock     *testutil.StubClock
	scratch   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := testutil.FixedClock()
	h := &harness{
		ledger:    testutil.NewFlakyLedger(),
		journal:   testutil.NewTestJournal(t, clock),
		publisher: testutil.NewTestPublisher(),
		contract:  testutil.NewFakeContract(),
		fetcher:   testutil.NewStubFetcher(),
		generator: testutil.NewStubGenerator(),
		logger:    &testutil.RecordingLogger{},
		clock:     clock,
		scratch:   t.TempDir(),
	}

	svc, err := nft.NewNFTService(nft.Dependencies{
		Ledger:     h.ledger,
		Journal:    h.journal,
		Publisher:  h.publisher,
		Fetcher:    h.fetcher,
		Generator:  h.generator,
		Contract:   h.contract,
		Signer:     testutil.StubSigner(testutil.TestSignerAddress),
		Logger:     h.logger,
		Clock:      clock,
		IDGen:      testutil.NewStubIDGenerator(),
		ScratchDir: h.scratch,
	})
	if err != nil {
		t.Fatalf("NewNFTService() error = %v", err)
	}
	h.svc = svc
	return h
}
