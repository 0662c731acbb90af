package emergency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"haven/internal/adapters"
	"haven/internal/adapters/mocks"
	"haven/internal/coordination"
	"haven/internal/settings"
	"haven/pkg/domain"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/clock"
	"haven/pkg/platform/sentinel"
)

// Mock-driven pipeline tests pin down the exact adapter call contract:
// which ports are invoked, how often, and with which handle.

func newMockedService(t *testing.T, ports Ports, cfg PipelineConfig) (*Service, *coordination.Core, *clock.Fake) {
	t.Helper()
	ctx := context.Background()
	store := settings.NewInMemoryStore()
	core, err := coordination.New(ctx, store, audit.NewPublisher())
	require.NoError(t, err)

	clk := clock.NewFake()
	svc, err := New(ctx, core, store, ports, WithClock(clk), WithPipelineConfig(cfg))
	require.NoError(t, err)

	_, err = svc.AddContact(ctx, Contact{Name: "Dana", Phone: "+15550100"})
	require.NoError(t, err)
	return svc, core, clk
}

func awaitTerminal(t *testing.T, svc *Service, clk *clock.Fake, countdown time.Duration) Snapshot {
	t.Helper()
	clk.Advance(countdown)

	var snap Snapshot
	require.Eventually(t, func() bool {
		var ok bool
		snap, ok = svc.Status()
		return ok && snap.Stage.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestPipelineCallsEachPortOnceOnHappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)

	handle := &adapters.MediaHandle{ID: "m1", Path: "mem://m1"}
	capture := mocks.NewMockCapture(ctrl)
	sealer := mocks.NewMockSealer(ctrl)
	vault := mocks.NewMockVault(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	wiper := mocks.NewMockWiper(ctrl)

	capture.EXPECT().StartCapture(gomock.Any()).Return(handle, nil)
	capture.EXPECT().StopCapture(gomock.Any(), handle).Return(nil)
	sealer.EXPECT().Seal(gomock.Any(), handle).Return(nil)
	vault.EXPECT().Upload(gomock.Any(), handle).Return("receipt-m1", nil)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Len(1), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []adapters.Recipient, msg adapters.Message) error {
			require.Equal(t, "receipt-m1", msg.Receipt)
			return nil
		})
	// Wipe runs strictly after the upload returned its receipt.
	wiper.EXPECT().Wipe(gomock.Any(), handle).Return(nil)

	svc, core, clk := newMockedService(t, Ports{
		Capture: capture, Sealer: sealer, Vault: vault, Notifier: notifier, Wiper: wiper,
	}, PipelineConfig{CountdownWindow: time.Second, StageTimeout: time.Second, StageRetries: 0})

	_, err := svc.Trigger(context.Background(), SourceButton)
	require.NoError(t, err)

	snap := awaitTerminal(t, svc, clk, time.Second)
	require.Equal(t, domain.StageCompleted, snap.Stage)
	require.Equal(t, domain.ModeNormal, core.Mode())
}

func TestPipelineStageTimeoutFailsRun(t *testing.T) {
	ctrl := gomock.NewController(t)

	handle := &adapters.MediaHandle{ID: "m2", Path: "mem://m2"}
	capture := mocks.NewMockCapture(ctrl)
	sealer := mocks.NewMockSealer(ctrl)
	vault := mocks.NewMockVault(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	wiper := mocks.NewMockWiper(ctrl)

	capture.EXPECT().StartCapture(gomock.Any()).Return(handle, nil)
	capture.EXPECT().StopCapture(gomock.Any(), handle).Return(nil)
	sealer.EXPECT().Seal(gomock.Any(), handle).Return(nil)
	// The upload never answers; the per-stage deadline has to cut it off.
	vault.EXPECT().Upload(gomock.Any(), handle).
		DoAndReturn(func(ctx context.Context, _ *adapters.MediaHandle) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	svc, _, clk := newMockedService(t, Ports{
		Capture: capture, Sealer: sealer, Vault: vault, Notifier: notifier, Wiper: wiper,
	}, PipelineConfig{CountdownWindow: time.Second, StageTimeout: 25 * time.Millisecond, StageRetries: 0})

	_, err := svc.Trigger(context.Background(), SourceButton)
	require.NoError(t, err)

	snap := awaitTerminal(t, svc, clk, time.Second)
	require.Equal(t, domain.StageFailed, snap.Stage)
	require.Equal(t, domain.StageUploading, snap.FailedStage)
	require.True(t, snap.EvidenceRetained, "timed-out upload must not reach the wiper")
}

func TestPipelineTreatsAlreadyGoneWipeAsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)

	capture := adapters.NewMemoryCapture()
	wiper := mocks.NewMockWiper(ctrl)
	wiper.EXPECT().Wipe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, h *adapters.MediaHandle) error {
			return fmt.Errorf("wipe %s: %w", h.ID, sentinel.ErrAlreadyGone)
		})

	svc, _, clk := newMockedService(t, Ports{
		Capture:  capture,
		Sealer:   &adapters.MemorySealer{},
		Vault:    adapters.NewMemoryVault(),
		Notifier: adapters.NewMemoryNotifier(),
		Wiper:    wiper,
	}, PipelineConfig{CountdownWindow: time.Second, StageTimeout: time.Second, StageRetries: 0})

	_, err := svc.Trigger(context.Background(), SourceButton)
	require.NoError(t, err)

	snap := awaitTerminal(t, svc, clk, time.Second)
	require.Equal(t, domain.StageCompleted, snap.Stage, "already-gone wipe is a distinguishable success")
}
