package main

import (
	"bitbucket.org/dtolpin/betaspline/beta"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
)

var (
	COMMA     = ","
	SKIP      = 0
	INCLUSIVE = false
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			`Computes average negative log predictive density. Invocation:
	%s  [OPTIONS] < FIT
FIT is the output of the fit, with records time,proportion,mean,alpha,beta.
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&COMMA, "comma", COMMA, "field separator")
	flag.IntVar(&SKIP, "s", SKIP, "initial records to skip")
	flag.BoolVar(&INCLUSIVE, "inclusive", INCLUSIVE, "accept proportions of 0 and 1")
}

// parse returns the proportion and the predicted shape parameters
// of a record, reporting the first malformed field.
func parse(record []string) (y, alpha, beta float64, err error) {
	if len(record) < 5 {
		return 0, 0, 0, fmt.Errorf("%d fields, want 5", len(record))
	}
	fields := []struct {
		j int
		v *float64
	}{{1, &y}, {3, &alpha}, {4, &beta}}
	for _, f := range fields {
		*f.v, err = strconv.ParseFloat(record[f.j], 64)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return y, alpha, beta, nil
}

func main() {
	flag.Parse()

	rdr := csv.NewReader(os.Stdin)
	rdr.Comma = rune(COMMA[0])
	dist := beta.Density{Inclusive: INCLUSIVE}

	sum := 0.
	n := 0
	for i := 0; ; i++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal(err)
		}

		if i < SKIP {
			continue
		}

		y, alpha, beta, err := parse(record)
		if err != nil {
			log.Fatalf("record %d: %v", i, err)
		}
		lp, err := dist.Logp(alpha, beta, y)
		if err != nil {
			log.Fatalf("record %d: %v", i, err)
		}
		sum -= lp
		n++
	}
	if n == 0 {
		log.Fatal("no records")
	}
	fmt.Printf("%f\n", sum/float64(n))
}
