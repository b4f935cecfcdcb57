package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/dealerintake/client"
	"github.com/cppla/dealerintake/models"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		endpoint = flag.String("endpoint", client.DefaultEndpoint, "Intake API upload URL")
		code     = flag.String("code", "", "Dealers code")
		name     = flag.String("name", "", "Dealership name")
		selfPath = flag.String("self", "", "Path to the dealer's passport (image or PDF)")
		spouse   = flag.String("spouse", "", "Path to the spouse's passport (optional)")
		verified = flag.Bool("verified", false, "Mobile number has been verified")
		mobile   = flag.String("mobile", "", "Verified mobile number")
		timeout  = flag.Duration("timeout", 2*time.Minute, "Upload timeout")
		verbose  = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()

	form, err := client.NewForm(client.Session{Verified: *verified, MobileNumber: *mobile},
		client.WithEndpoint(*endpoint),
		client.WithLogger(logger),
	)
	if err != nil {
		var redirect *client.RedirectError
		if errors.As(err, &redirect) {
			fmt.Fprintf(os.Stderr, "%s; start again at %s\n", redirect.Reason, redirect.Destination)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return exitUsage
	}

	form.SetDealersCode(*code)
	form.SetDealershipName(*name)
	for _, pick := range []struct {
		path string
		slot models.DocumentKind
	}{
		{*selfPath, models.DocumentSelf},
		{*spouse, models.DocumentSpouse},
	} {
		if pick.path == "" {
			continue
		}
		file, err := client.FileFromPath(pick.path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", pick.slot, err)
			return exitUsage
		}
		form.HandleFileChange(file, pick.slot)
		if msg := form.Error(string(pick.slot)); msg != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", pick.slot, msg)
			return exitUsage
		}
	}
	form.WaitPreviews()
	for _, slot := range []models.DocumentKind{models.DocumentSelf, models.DocumentSpouse} {
		switch preview := form.Preview(slot); {
		case preview == client.PreviewPDF:
			fmt.Printf("%s passport: PDF Document\n", slot.Label())
		case preview != "":
			fmt.Printf("%s passport: image preview ready (%s)\n", slot.Label(), form.File(slot).Name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := form.HandleSubmit(ctx); err != nil {
		printErrors(form.Errors())
		return exitFailure
	}
	fmt.Println("Documents uploaded successfully!")
	fmt.Println(form.Confirmation())
	return 0
}

func printErrors(errs map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "%s: %s\n", k, errs[k])
	}
}
