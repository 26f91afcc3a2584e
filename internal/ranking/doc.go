// Package ranking scores and orders feed candidate sets for one viewer,
// combining recency, engagement, social affinity, content-type preference,
// topic relevance, and geographic proximity, with multiplicative penalties
// for low-quality or unwanted content.
//
// Two scoring models coexist on purpose. The batch model (Ranker.Rank) is
// what actually orders feeds: a cheap multiplicative formula over bucketed
// recency with a freshness-gated score cache, built to stay linear over
// large candidate sets. The weighted model (ScorePost / ExplainPost) is the
// explainable single-post scorer: six normalized signals combined under
// dynamically renormalized weights, suitable for "why am I seeing this"
// surfaces. The two produce different magnitudes and must not be compared.
//
// Basic usage:
//
//	cfg, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default ranking config", "error", err)
//	}
//
//	ranker := ranking.NewRanker(ranking.RankerConfig{
//		Config: cfg,
//		Cache:  ranking.NewMemoryScoreCache(),
//	})
//
//	ranked := ranker.Rank(ctx, ranking.BatchInput{
//		Posts:          candidates,
//		CommentCounts:  commentCounts,
//		Places:         places,
//		FollowerCounts: followerCounts,
//		SaveCounts:     saveCounts,
//		Ctx:            viewerContext,
//	})
//
// Calibration:
//
// Weights and thresholds load from a JSON calibration file at startup,
// with partial overrides merged over defaults. Tuning requires a restart,
// not a code change.
//
// Determinism:
//
// Ranking is a pure function of its inputs: per-post scoring runs in
// parallel but results land in input slots and a stable sort breaks score
// ties by input order, so identical inputs always produce identical
// output order.
package ranking
