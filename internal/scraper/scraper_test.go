package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"investment-calculator/internal/models"
	"investment-calculator/internal/scraper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fixture(name string) string {
	b, err := os.ReadFile(filepath.Join("testdata", name))
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

// stubFetcher replays queued results, then repeats the last one.
type stubFetcher struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
}

type stubResult struct {
	html string
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].html, f.results[i].err
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ = Describe("DetectSite", func() {
	DescribeTable("supported and unsupported urls",
		func(url string, site scraper.Site, want error) {
			got, err := scraper.DetectSite(url)
			if want != nil {
				Expect(err).To(MatchError(want))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(site))
		},
		Entry("redfin", "https://www.redfin.com/TX/Austin/4512-Ridgeview-Dr-78731/home/123", scraper.SiteRedfin, nil),
		Entry("realtor", "https://www.realtor.com/realestateandhomes-detail/88-Harbor-Ln_Tampa_FL_33602", scraper.SiteRealtor, nil),
		Entry("zillow", "https://www.zillow.com/homedetails/1", scraper.Site(""), scraper.ErrUnsupportedSite),
		Entry("lookalike host", "https://notredfin.com/home/1", scraper.Site(""), scraper.ErrUnsupportedSite),
		Entry("not a url", "redfin listing please", scraper.Site(""), scraper.ErrInvalidURL),
		Entry("ftp scheme", "ftp://www.redfin.com/x", scraper.Site(""), scraper.ErrInvalidURL),
	)
})

var _ = Describe("ParseNumber", func() {
	DescribeTable("listing text",
		func(in string, want float64, ok bool) {
			got, gotOK := scraper.ParseNumber(in)
			Expect(gotOK).To(Equal(ok))
			Expect(got).To(BeNumerically("~", want, 0.001))
		},
		Entry("currency with commas", "$1,250,000", 1250000.0, true),
		Entry("millions suffix", "$1.2M", 1200000.0, true),
		Entry("thousands suffix", "450K", 450000.0, true),
		Entry("square feet", "2,140 sq ft", 2140.0, true),
		Entry("range takes lower bound", "3-4", 3.0, true),
		Entry("monthly amount", "$425/mo", 425.0, true),
		Entry("word starting with m is not a suffix", "$350 Monthly", 350.0, true),
		Entry("em dash placeholder", "—", 0.0, false),
		Entry("empty", "", 0.0, false),
	)
})

var _ = Describe("Extract", func() {
	It("reads a Redfin listing", func() {
		l, err := scraper.Extract(scraper.SiteRedfin, "https://www.redfin.com/x", fixture("redfin.html"))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Address).To(Equal("4512 Ridgeview Dr, Austin, TX 78731"))
		Expect(l.Price).To(Equal(549000.0))
		Expect(l.Beds).To(Equal(3.0))
		Expect(l.Baths).To(Equal(2.5))
		Expect(l.Sqft).To(Equal(2140.0))
		Expect(l.YearBuilt).To(Equal(1998))
		Expect(l.HOAMonthly).To(BeNumerically("~", 50, 0.001))
		Expect(l.PropertyTaxAnnual).To(Equal(9840.0))
		Expect(l.PropertyType).To(Equal("Single Family Residence"))
		Expect(l.ImageURL).To(HaveSuffix("4512-ridgeview.jpg"))
		Expect(l.Site).To(Equal(scraper.SiteRedfin))
	})

	It("reads a Realtor.com listing with fallback selectors", func() {
		l, err := scraper.Extract(scraper.SiteRealtor, "https://www.realtor.com/x", fixture("realtor.html"))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Address).To(Equal("88 Harbor Ln, Tampa, FL 33602"))
		Expect(l.Price).To(Equal(1200000.0))
		Expect(l.Beds).To(Equal(2.0))
		Expect(l.Sqft).To(Equal(1480.0))
		Expect(l.YearBuilt).To(Equal(2015))
		Expect(l.HOAMonthly).To(Equal(425.0))
		Expect(l.PropertyTaxAnnual).To(Equal(13200.0))
		Expect(l.PropertyType).To(Equal("Condo"))
	})

	It("falls back to embedded linked data", func() {
		l, err := scraper.Extract(scraper.SiteRedfin, "https://www.redfin.com/x", fixture("redfin_jsonld.html"))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Address).To(Equal("17 Oak St, Denver, CO 80205"))
		Expect(l.Price).To(Equal(615000.0))
		Expect(l.Beds).To(Equal(4.0))
		Expect(l.Sqft).To(Equal(1900.0))
	})

	It("reports a missing price as an extraction failure", func() {
		l, err := scraper.Extract(scraper.SiteRedfin, "https://www.redfin.com/x", fixture("redfin_noprice.html"))
		Expect(err).To(MatchError(scraper.ErrExtraction))
		Expect(err.Error()).To(ContainSubstring("price"))
		Expect(l.Address).To(Equal("9 Pine Ct, Boise, ID 83702"))
	})
})

var _ = Describe("Listing.Prefill", func() {
	l := scraper.Listing{Price: 400000, PropertyTaxAnnual: 6000, HOAMonthly: 75}

	It("maps to each calculator", func() {
		Expect(l.Prefill(models.CalculatorMortgage)).To(Equal(map[string]float64{
			"homePrice": 400000, "propertyTaxAnnual": 6000, "hoaMonthly": 75,
		}))
		Expect(l.Prefill(models.CalculatorRental)).To(HaveKeyWithValue("purchasePrice", 400000.0))
		Expect(l.Prefill(models.CalculatorWholesale)).To(Equal(map[string]float64{"afterRepairValue": 400000}))
	})

	It("omits fields that were not found", func() {
		Expect(scraper.Listing{Price: 1}.Prefill(models.CalculatorAirbnb)).NotTo(HaveKey("hoaMonthly"))
	})
})

var _ = Describe("Scraper", func() {
	const url = "https://www.redfin.com/TX/Austin/4512-Ridgeview-Dr-78731/home/123"

	var opts scraper.Options

	BeforeEach(func() {
		opts = scraper.Options{Retries: 3, InitialInterval: time.Millisecond, CacheTTL: time.Minute}
	})

	It("retries transient navigation failures", func() {
		f := &stubFetcher{results: []stubResult{
			{err: errors.New("connection reset")},
			{err: &scraper.StatusError{Code: http.StatusServiceUnavailable}},
			{html: fixture("redfin.html")},
		}}
		l, err := scraper.New(f, opts).Scrape(context.Background(), url)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Price).To(Equal(549000.0))
		Expect(f.Calls()).To(Equal(3))
	})

	It("gives up after the configured retries", func() {
		f := &stubFetcher{results: []stubResult{{err: errors.New("timeout")}}}
		_, err := scraper.New(f, opts).Scrape(context.Background(), url)
		Expect(err).To(MatchError(scraper.ErrNavigation))
		Expect(f.Calls()).To(Equal(4))
	})

	It("does not retry client errors", func() {
		f := &stubFetcher{results: []stubResult{{err: &scraper.StatusError{Code: http.StatusNotFound}}}}
		_, err := scraper.New(f, opts).Scrape(context.Background(), url)
		Expect(err).To(MatchError(scraper.ErrNavigation))
		Expect(f.Calls()).To(Equal(1))
	})

	It("does not retry extraction failures", func() {
		f := &stubFetcher{results: []stubResult{{html: fixture("redfin_noprice.html")}}}
		_, err := scraper.New(f, opts).Scrape(context.Background(), url)
		Expect(err).To(MatchError(scraper.ErrExtraction))
		Expect(f.Calls()).To(Equal(1))
	})

	It("rejects unsupported sites without fetching", func() {
		f := &stubFetcher{results: []stubResult{{html: fixture("redfin.html")}}}
		_, err := scraper.New(f, opts).Scrape(context.Background(), "https://www.zillow.com/homedetails/1")
		Expect(err).To(MatchError(scraper.ErrUnsupportedSite))
		Expect(f.Calls()).To(Equal(0))
	})

	It("caches listings by path", func() {
		f := &stubFetcher{results: []stubResult{{html: fixture("redfin.html")}}}
		s := scraper.New(f, opts)
		_, err := s.Scrape(context.Background(), url)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Scrape(context.Background(), url+"?utm_source=share")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Calls()).To(Equal(1))
	})
})

var _ = Describe("HTTPFetcher", func() {
	It("sends browser headers and surfaces status codes", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if r.URL.Path == "/missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("<html><body>ok</body></html>"))
		}))
		defer srv.Close()

		f, err := scraper.NewHTTPFetcher(5 * time.Second)
		Expect(err).NotTo(HaveOccurred())

		html, err := f.Fetch(context.Background(), srv.URL+"/home")
		Expect(err).NotTo(HaveOccurred())
		Expect(html).To(ContainSubstring("ok"))

		_, err = f.Fetch(context.Background(), srv.URL+"/missing")
		var status *scraper.StatusError
		Expect(errors.As(err, &status)).To(BeTrue())
		Expect(status.Code).To(Equal(http.StatusNotFound))
		Expect(status.Temporary()).To(BeFalse())
	})
})

var _ = Describe("Handler", func() {
	serve := func(f scraper.Fetcher, body string) *httptest.ResponseRecorder {
		s := scraper.New(f, scraper.Options{Retries: 1, InitialInterval: time.Millisecond})
		req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(body))
		w := httptest.NewRecorder()
		scraper.Handler(s)(w, req)
		return w
	}

	It("returns the listing with calculator prefill", func() {
		w := serve(&stubFetcher{results: []stubResult{{html: fixture("redfin.html")}}},
			`{"url":"https://www.redfin.com/home/1","type":"rental"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"purchasePrice":549000`))
	})

	DescribeTable("maps failures to status codes",
		func(result stubResult, url string, status int) {
			w := serve(&stubFetcher{results: []stubResult{result}}, `{"url":"`+url+`"}`)
			Expect(w.Code).To(Equal(status))
			Expect(w.Body.String()).To(ContainSubstring(`"error"`))
		},
		Entry("unsupported site", stubResult{}, "https://www.zillow.com/x", http.StatusBadRequest),
		Entry("extraction failure", stubResult{html: "<html></html>"}, "https://www.redfin.com/x", http.StatusUnprocessableEntity),
		Entry("navigation failure", stubResult{err: errors.New("dns")}, "https://www.redfin.com/x", http.StatusBadGateway),
	)
})
