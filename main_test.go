package main

import (
	"bitbucket.org/dtolpin/betaspline/config"
	. "bitbucket.org/dtolpin/betaspline/model"
	"bitbucket.org/dtolpin/infergo/infer"
	"bitbucket.org/dtolpin/infergo/model"
	"gonum.org/v1/gonum/optimize"
	"math"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	obs, err := load(strings.NewReader("1,0.5\n2, 0.25, 3\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if obs[0].W != 1 {
		t.Errorf("default weight: got %g, want 1", obs[0].W)
	}
	if obs[1].T != 2 || obs[1].Y != 0.25 || obs[1].W != 3 {
		t.Errorf("got %+v", obs[1])
	}

	for _, in := range []string{
		"1\n",
		"1,0.5,1,2\n",
		"1,half\n",
	} {
		if _, err := load(strings.NewReader(in)); err == nil {
			t.Errorf("%q: no error", in)
		}
	}
}

func TestSelfCheck(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(selfCheckModel))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	obs, err := load(strings.NewReader(selfCheckData))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	engine, err := cfg.Engine(obs)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	coefs, err := initialCoefs(cfg, obs)
	if err != nil {
		t.Fatalf("initial: %v", err)
	}
	if len(coefs) != len(cfg.Knots) {
		t.Fatalf("got %d coefficients, want %d", len(coefs), len(cfg.Knots))
	}
	x := cfg.Initial(coefs)
	terms, err := engine.Terms(x)
	if err != nil {
		t.Fatalf("terms: %v", err)
	}
	for i, p := range terms.Predictions {
		if math.Abs(p.Mean-obs[i].Y) > 0.02 {
			t.Errorf("%d: initial mean %.4f far from %.4f", i, p.Mean, obs[i].Y)
		}
	}

	m := &Model{Engine: engine}
	lml0 := m.Observe(x)
	model.DropGradient(m)
	Func, Grad := infer.FuncGrad(m)
	result, _ := optimize.Minimize(
		optimize.Problem{Func: Func, Grad: Grad},
		x, &optimize.Settings{MajorIterations: 50}, nil)
	if result == nil {
		t.Fatalf("no optimization result")
	}
	lml := m.Observe(result.X)
	if m.Err() != nil {
		t.Fatalf("infeasible fit: %v", m.Err())
	}
	if lml < lml0 {
		t.Errorf("fit decreased the log posterior: %.4f < %.4f", lml, lml0)
	}
}
