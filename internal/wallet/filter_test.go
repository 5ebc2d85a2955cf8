package wallet_test

import (
	"time"

	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/wallet"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) wallet.LogEntry {
	return wallet.LogEntry{
		Timestamp: time.Date(y, m, d, hh, mm, 0, 0, loc).Unix(),
		Action:    wallet.ActionDeposit,
		AmountEth: ethunit.MustParse("1"),
	}
}

func day(s string) *wallet.Date {
	d, err := wallet.ParseDate(s)
	Expect(err).NotTo(HaveOccurred())
	return &d
}

var _ = Describe("FilterLogs", func() {
	var (
		loc     *time.Location
		entries []wallet.LogEntry
	)

	BeforeEach(func() {
		loc = time.FixedZone("ICT", 7*3600)
		entries = []wallet.LogEntry{
			at(loc, 2024, time.January, 9, 23, 59),
			at(loc, 2024, time.January, 10, 0, 0),
			at(loc, 2024, time.January, 10, 12, 30),
			at(loc, 2024, time.January, 10, 23, 59),
			at(loc, 2024, time.January, 11, 0, 1),
		}
	})

	It("keeps only the entries of a single-day range, whatever the time of day", func() {
		got := wallet.FilterLogs(entries, wallet.DateRange{Start: day("2024-01-10"), End: day("2024-01-10")}, loc)
		Expect(got).To(Equal(entries[1:4]))
	})

	It("treats missing bounds as open", func() {
		Expect(wallet.FilterLogs(entries, wallet.DateRange{}, loc)).To(Equal(entries))
		Expect(wallet.FilterLogs(entries, wallet.DateRange{Start: day("2024-01-10")}, loc)).To(Equal(entries[1:]))
		Expect(wallet.FilterLogs(entries, wallet.DateRange{End: day("2024-01-10")}, loc)).To(Equal(entries[:4]))
	})

	It("uses the calendar date of the given location", func() {
		// 2024-01-09 23:59 ICT is 16:59 UTC the same day
		got := wallet.FilterLogs(entries[:1], wallet.DateRange{Start: day("2024-01-09"), End: day("2024-01-09")}, time.UTC)
		Expect(got).To(HaveLen(1))

		// 2024-01-10 00:00 ICT is still 2024-01-09 in UTC
		got = wallet.FilterLogs(entries[1:2], wallet.DateRange{Start: day("2024-01-10")}, time.UTC)
		Expect(got).To(BeEmpty())
	})

	It("does not modify the source slice", func() {
		before := append([]wallet.LogEntry(nil), entries...)
		wallet.FilterLogs(entries, wallet.DateRange{Start: day("2024-01-11")}, loc)
		Expect(entries).To(Equal(before))
	})

	It("returns an empty result when the range is inverted", func() {
		got := wallet.FilterLogs(entries, wallet.DateRange{Start: day("2024-01-11"), End: day("2024-01-09")}, loc)
		Expect(got).To(BeEmpty())
	})
})

var _ = Describe("ParseDate", func() {
	It("reads YYYY-MM-DD", func() {
		d, err := wallet.ParseDate(" 2024-02-29 ")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(wallet.Date{Year: 2024, Month: time.February, Day: 29}))
		Expect(d.String()).To(Equal("2024-02-29"))
	})

	It("rejects other layouts", func() {
		_, err := wallet.ParseDate("10/01/2024")
		Expect(err).To(MatchError("date must use the form YYYY-MM-DD"))
	})
})

var _ = Describe("LogEntry", func() {
	It("signs debits negative", func() {
		withdraw := wallet.LogEntry{Action: wallet.ActionWithdraw, AmountEth: ethunit.MustParse("0.5")}
		purchase := wallet.LogEntry{Action: wallet.ActionPurchase, AmountEth: ethunit.MustParse("2")}
		deposit := wallet.LogEntry{Action: wallet.ActionDeposit, AmountEth: ethunit.MustParse("1.25")}

		Expect(withdraw.IsDebit()).To(BeTrue())
		Expect(purchase.IsDebit()).To(BeTrue())
		Expect(deposit.IsDebit()).To(BeFalse())
		Expect(withdraw.SignedAmount().String()).To(Equal("-0.5"))
		Expect(deposit.SignedAmount().String()).To(Equal("1.25"))
	})
})
