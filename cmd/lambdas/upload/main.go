package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/muneemjee/ledger/internal/lambdafn"
)

func main() {
	h, err := lambdafn.Bootstrap(context.Background())
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	lambda.Start(h.Upload)
}
