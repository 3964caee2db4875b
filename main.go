package main

import (
	"bitbucket.org/dtolpin/betaspline/config"
	"bitbucket.org/dtolpin/betaspline/lspline"
	"bitbucket.org/dtolpin/betaspline/metrics"
	. "bitbucket.org/dtolpin/betaspline/model"
	"bitbucket.org/dtolpin/betaspline/posterior"
	"bitbucket.org/dtolpin/infergo/infer"
	"bitbucket.org/dtolpin/infergo/model"
	"encoding/csv"
	"flag"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
)

var (
	CONFIG  = ""
	METRICS = ""
	ITERS   = 0
	VERBOSE = false
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			`Fits a linear spline trend to observed proportions. Invocation:
  %s [OPTIONS] < INPUT > OUTPUT
or
  %s [OPTIONS] selfcheck
INPUT is CSV with records time,proportion[,weight]. OUTPUT adds
the fitted mean and Beta shape parameters to each record.
In 'selfcheck' mode, the data and the model hard-coded into the
program are used, to demonstrate basic functionality.
`, os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&CONFIG, "config", CONFIG, "model description (YAML)")
	flag.StringVar(&METRICS, "metrics", METRICS, "serve metrics on this address")
	flag.IntVar(&ITERS, "iters", ITERS, "optimizer iterations, 0 for no limit")
	flag.BoolVar(&VERBOSE, "v", VERBOSE, "verbose logging")
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	if VERBOSE {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func main() {
	var (
		input  io.Reader = os.Stdin
		output io.Writer = os.Stdout
		model_ io.Reader
	)

	flag.Parse()
	switch {
	case flag.NArg() == 0:
	case flag.NArg() == 1 && flag.Arg(0) == "selfcheck":
		input = strings.NewReader(selfCheckData)
		model_ = strings.NewReader(selfCheckModel)
	default:
		panic("usage")
	}
	log := newLogger()
	defer log.Sync()

	// Load the model description and the data
	var (
		cfg *config.Config
		err error
	)
	switch {
	case CONFIG != "":
		cfg, err = config.LoadFile(CONFIG)
	case model_ != nil:
		cfg, err = config.Load(model_)
	default:
		log.Fatal("no model description, use -config")
	}
	if err != nil {
		log.Fatalw("failed to load the model", "error", err)
	}
	log.Debug("loading...")
	obs, err := load(input)
	if err != nil {
		log.Fatalw("failed to load the data", "error", err)
	}
	log.Debugw("done", "observations", len(obs))

	engine, err := cfg.Engine(obs)
	if err != nil {
		log.Fatalw("invalid model", "error", err)
	}

	reg := prometheus.NewRegistry()
	if METRICS != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(METRICS, mux); err != nil {
				log.Errorw("metrics server stopped", "error", err)
			}
		}()
	}
	m := &Model{
		Engine:  engine,
		Metrics: metrics.New(reg),
	}

	// Construct the initial point in the optimization space
	coefs, err := initialCoefs(cfg, obs)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	x := cfg.Initial(coefs)

	// Initial log posterior
	lml0 := m.Observe(x)
	model.DropGradient(m)
	if err := m.Err(); err != nil {
		log.Fatalw("infeasible initial point", "error", err)
	}

	// Optimize the parameters
	log.Debug("fitting...")
	Func, Grad := infer.FuncGrad(m)
	p := optimize.Problem{Func: Func, Grad: Grad}
	result, err := optimize.Minimize(
		p, x, &optimize.Settings{
			MajorIterations: ITERS,
		}, nil)
	// The optimizer does not need to `officially' converge;
	// the last point is reported whenever there is one.
	if result == nil {
		log.Fatalw("failed to optimize", "error", err)
	}
	if err != nil {
		log.Warnw("optimizer stopped", "error", err,
			"iterations", result.Stats.MajorIterations)
	}
	x = result.X

	// Final log posterior
	lml := m.Observe(x)
	model.DropGradient(m)
	terms, err := engine.Terms(x)
	if err != nil {
		log.Fatalw("infeasible final point", "error", err)
	}

	// Output the data augmented with the fit
	residuals := make([]float64, len(obs))
	weights := make([]float64, len(obs))
	for i, o := range obs {
		pr := terms.Predictions[i]
		fmt.Fprintf(output, "%f,%f,%f,%f,%f\n",
			o.T, o.Y, pr.Mean, pr.Alpha, pr.Beta)
		residuals[i] = o.Y - pr.Mean
		weights[i] = o.W
	}
	mean, std := stat.MeanStdDev(residuals, weights)
	log.Infow("done",
		"lml0", lml0, "lml", lml,
		"prior", terms.Prior,
		"iterations", result.Stats.MajorIterations,
		"evaluations", result.Stats.FuncEvaluations,
		"residual_mean", mean, "residual_std", std)
	log.Debugw("parameters", "x", x)
}

// initialCoefs returns the least-squares spline coefficients through
// the data, on the scale of the trend, or the constant weighted mean
// if the knots are not covered by the data.
func initialCoefs(cfg *config.Config, obs []posterior.Observation) ([]float64, error) {
	basis, err := lspline.NewBasis(cfg.Knots)
	if err != nil {
		return nil, err
	}
	ts := make([]float64, len(obs))
	ys := make([]float64, len(obs))
	ws := make([]float64, len(obs))
	for i, o := range obs {
		ts[i] = o.T
		// keep the initial trend inside (0, 1)
		y := math.Min(math.Max(o.Y, 1e-3), 1-1e-3)
		if cfg.Shape.Logit {
			y = math.Log(y / (1 - y))
		}
		ys[i] = y
		ws[i] = o.W
	}
	coefs, err := basis.Fit(ts, ys, ws)
	if err == nil {
		return coefs, nil
	}
	coefs = make([]float64, basis.NKnots())
	c := stat.Mean(ys, ws)
	if math.IsNaN(c) {
		c = stat.Mean(ys, nil)
	}
	for i := range coefs {
		coefs[i] = c
	}
	return coefs, nil
}

// load parses the data from csv and returns the observations,
// suitable for feeding to the engine.
func load(rdr io.Reader) (obs []posterior.Observation, err error) {
	csv := csv.NewReader(rdr)
	csv.FieldsPerRecord = -1
RECORDS:
	for {
		record, err := csv.Read()
		switch err {
		case nil:
			// record contains the data
			if len(record) < 2 || len(record) > 3 {
				return obs, fmt.Errorf("record %d: %d fields, want 2 or 3",
					len(obs)+1, len(record))
			}
			o := posterior.Observation{W: 1}
			fields := []*float64{&o.T, &o.Y, &o.W}
			for i := range record {
				*fields[i], err = strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
				if err != nil {
					// data error
					return obs, err
				}
			}
			obs = append(obs, o)
		case io.EOF:
			// end of file
			break RECORDS
		default:
			// i/o error
			return obs, err
		}
	}

	return obs, nil
}

var selfCheckModel = `
knots: [2000, 2005, 2010, 2015, 2020]
shape:
  kind: mean-precision
  logit: true
prior:
  mean: [-3, -3, -3, -3, -3]
  kernel:
    kind: matern52
    variance: 1
    length_scale: 10
    jitter: 1.0e-6
hyper:
  mu: 5
  sigma: 1.5
`

var selfCheckData = `2000,0.0312,1
2001,0.0335,1
2002,0.0391,1
2003,0.0406,1
2004,0.0452,1
2005,0.0498,1
2006,0.0513,1
2007,0.0574,1
2008,0.0561,1
2009,0.0602,1
2010,0.0627,2
2011,0.0589,2
2012,0.0555,2
2013,0.0531,2
2014,0.0486,2
2015,0.0472,2
2016,0.0425,1
2017,0.0433,1
2018,0.0398,1
2019,0.0371,1
2020,0.0366,0.5
`
