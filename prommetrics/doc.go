// Package prommetrics exports fvec store metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := prommetrics.New(reg)
//	if err != nil {
//	    return err
//	}
//	st := fvec.NewStore(bs, fvec.WithMetrics(mc))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prommetrics
