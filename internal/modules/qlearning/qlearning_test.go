package qlearning

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"shiftroute/internal/geo"
	"shiftroute/internal/maps"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/demand/demandtest"
	"shiftroute/internal/modules/pricing"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

func testOptions(seed int64) Options {
	opts := DefaultOptions()
	opts.Seed = seed
	return opts
}

func trained(t *testing.T, est maps.Estimator, opts Options) *Dispatcher {
	t.Helper()
	d := New(demandtest.Table(), est, opts)
	require.False(t, d.Ready())
	require.NoError(t, d.Train(context.Background()))
	require.True(t, d.Ready())
	return d
}

func actionAt(p types.Point) Action {
	return Action(geo.DefaultGrid().CellOf(p))
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestDispatcher_RequiresTraining(t *testing.T) {
	d := New(demandtest.Table(), demandtest.GreatCircle(), testOptions(1))

	_, err := d.Recommend(context.Background(), demandtest.Tanjong, 8)
	require.ErrorIs(t, err, ErrNotTrained)

	_, err = d.AssembleRoute(context.Background(), route.Request{
		Start: demandtest.Tanjong, StartHour: 8, EndHour: 10, Break: route.DefaultBreak(),
	})
	require.ErrorIs(t, err, ErrNotTrained)
}

func TestDispatcher_TrainEmptyTable(t *testing.T) {
	d := New(demand.NewTable(nil), demandtest.GreatCircle(), testOptions(1))
	require.ErrorIs(t, d.Train(context.Background()), ErrNoData)
	require.False(t, d.Ready())
}

func TestDispatcher_TrainIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCanceled bool
	est := maps.EstimatorFunc(func(ctx context.Context, from, to types.Point) maps.Estimate {
		if ctx.Err() != nil {
			sawCanceled = true
		}
		return maps.GreatCircle(from, to)
	})
	d := New(demandtest.Table(), est, testOptions(3))
	require.NoError(t, d.Train(ctx))
	require.False(t, sawCanceled)
	require.True(t, d.Ready())
}

func TestDispatcher_TrainPopulatesTable(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(42))

	entries, actions := d.Snapshot()
	require.Positive(t, entries)
	// only the two records with suggestions become actions
	require.Equal(t, 2, actions)

	// every learned action resolves to a coordinate
	d.q.each(func(_ State, a Action, _ float64) {
		_, ok := d.locations[a]
		require.True(t, ok, "action %v has no coordinate", a)
	})

	// a second call does not retrain
	require.NoError(t, d.Train(context.Background()))
	again, _ := d.Snapshot()
	require.Equal(t, entries, again)
}

func TestDispatcher_UnvisitedPairsKeepDefault(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(42))

	unvisited := State{Cell: geo.Cell{X: 0, Y: 0}, Hour: 8}
	require.Equal(t, DefaultQ, d.QValue(unvisited, actionAt(demandtest.Tanjong)))
	require.Equal(t, 0.1, d.MaxQ(unvisited))

	// no records at 3 AM, so no actions to maximise over
	require.Zero(t, d.MaxQ(State{Cell: geo.Cell{X: 0, Y: 0}, Hour: 3}))
}

// ---------------------------------------------------------------------------
// Reward
// ---------------------------------------------------------------------------

func TestDispatcher_Reward(t *testing.T) {
	d := New(demandtest.Table(), demandtest.GreatCircle(), testOptions(1))
	d.possibleActions(8)

	// gap -2 => factor 1 - (-2) = 3, minus 0.3/km
	require.InDelta(t, 3.0-0.6, d.reward(actionAt(demandtest.Tanjong), 8, 2), 1e-9)
	// no record at 3 AM => neutral factor
	require.InDelta(t, pricing.NeutralDemandFactor-0.6, d.reward(actionAt(demandtest.Tanjong), 3, 2), 1e-9)
	// an action never mapped to coordinates
	require.Equal(t, pricing.UnmappedPenalty, d.reward(Action{X: 19, Y: 0}, 8, 2))
}

// ---------------------------------------------------------------------------
// Recommend
// ---------------------------------------------------------------------------

func noExploration() Options {
	opts := testOptions(5)
	opts.Episodes = 0
	opts.Explore = 0
	return opts
}

func TestRecommend_StaysPutWithoutActions(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(9))
	here := types.Point{Lat: 1.3333, Lng: 103.7777}
	got, err := d.Recommend(context.Background(), here, 3)
	require.NoError(t, err)
	require.Equal(t, here, got)
}

func TestRecommend_ReturnsKnownActionCoordinates(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(11))
	allowed := map[types.Point]bool{demandtest.Tanjong: true, demandtest.Tampines: true}
	for hour := 6; hour <= 21; hour++ {
		got, err := d.Recommend(context.Background(), demandtest.Marina, hour)
		require.NoError(t, err)
		require.True(t, allowed[got], "hour %d recommended %v", hour, got)
	}
}

func TestRecommend_StrictMaxQ(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), noExploration())
	s := d.stateOf(demandtest.Novena, 8)

	// equal defaults: first encountered wins
	got, err := d.Recommend(context.Background(), demandtest.Novena, 8)
	require.NoError(t, err)
	require.Equal(t, demandtest.Tanjong, got)

	d.q.Set(s, actionAt(demandtest.Tampines), 0.5)
	got, err = d.Recommend(context.Background(), demandtest.Novena, 8)
	require.NoError(t, err)
	require.Equal(t, demandtest.Tampines, got)
}

func TestRecommend_DemandWeightedFallback(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), noExploration())
	s := d.stateOf(demandtest.Novena, 8)

	// Tanjong: -1 + 0.5*2 = 0 ; Tampines: -1 + 0.5*0.5 = -0.75
	d.q.Set(s, actionAt(demandtest.Tanjong), -1)
	d.q.Set(s, actionAt(demandtest.Tampines), -1)
	got, err := d.Recommend(context.Background(), demandtest.Novena, 8)
	require.NoError(t, err)
	require.Equal(t, demandtest.Tanjong, got)

	// Tanjong: -2 + 1 = -1 ; Tampines: -0.75
	d.q.Set(s, actionAt(demandtest.Tanjong), -2)
	got, err = d.Recommend(context.Background(), demandtest.Novena, 8)
	require.NoError(t, err)
	require.Equal(t, demandtest.Tampines, got)
}

// ---------------------------------------------------------------------------
// Route assembly
// ---------------------------------------------------------------------------

func shift() route.Request {
	return route.Request{Start: demandtest.Tanjong, StartHour: 8, EndHour: 18, Break: route.DefaultBreak()}
}

func TestNextDropoff_PrefersDemandWeightedFare(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(2))
	p := policy{d}

	leg, ok, err := p.NextDropoff(context.Background(), demandtest.Tanjong, 8)
	require.NoError(t, err)
	require.True(t, ok)
	// Bishan is further but its gap (2.5) outweighs Novena's (1.5)
	require.Equal(t, demandtest.Bishan, leg.To)
	require.InDelta(t, pricing.Fare(geo.HaversineKm(demandtest.Tanjong, demandtest.Bishan)), leg.Revenue, 1e-9)

	_, ok, err = p.NextDropoff(context.Background(), demandtest.Novena, 8)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAssembleRoute_Properties(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(42))
	req := shift()

	r, err := d.AssembleRoute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, Name, r.Algorithm)
	require.NoError(t, route.Verify(r, req.Break))
	require.Positive(t, r.TripCount)
	require.Positive(t, r.TotalRevenue)
	require.Equal(t, demandtest.Tanjong, r.Locations[0].Point())
}

func TestAssembleRoute_DeterministicForSeed(t *testing.T) {
	a, err := trained(t, demandtest.GreatCircle(), testOptions(7)).AssembleRoute(context.Background(), shift())
	require.NoError(t, err)
	b, err := trained(t, demandtest.GreatCircle(), testOptions(7)).AssembleRoute(context.Background(), shift())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAssembleRoute_UnreachablePickupStopsShift(t *testing.T) {
	d := trained(t, demandtest.Unreachable(), testOptions(4))
	entries, _ := d.Snapshot()
	require.Zero(t, entries, "unreachable steps must not update the table")

	r, err := d.AssembleRoute(context.Background(), shift())
	require.NoError(t, err)
	require.Len(t, r.Locations, 1)
	require.Zero(t, r.TripCount)
}

func TestAssembleRoute_ConcurrentCallsAreSerialized(t *testing.T) {
	d := trained(t, demandtest.GreatCircle(), testOptions(8))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := d.AssembleRoute(context.Background(), shift())
			if err == nil {
				err = route.Verify(r, route.DefaultBreak())
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
