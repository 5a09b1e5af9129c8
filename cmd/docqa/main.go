package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
)

var (
	apiURL  string
	batchID string
)

func main() {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "Query and manage a document question answering service",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	defaultAPI := os.Getenv("DOCQA_API_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "base URL of the docqa API")
	root.PersistentFlags().StringVar(&batchID, "batch", "", "batch to operate on (default batch when empty)")

	root.AddCommand(newAskCommand(), newUploadCommand(), newBatchesCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{
				"question": args[0],
				"batch_id": batchID,
			})
			if err != nil {
				return err
			}

			resp, err := httpClient().Post(apiURL+"/v1/query", "application/json", bytes.NewReader(payload))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apiError(resp)
			}

			var answer domain.Answer
			if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
				return fmt.Errorf("decode answer: %w", err)
			}

			fmt.Println(answer.Text)
			if answer.Refused {
				return nil
			}
			if len(answer.Citations) > 0 {
				fmt.Println()
				fmt.Println("Citations:")
				for _, c := range answer.Citations {
					fmt.Printf("  [%d] %s\n", c.Tag, c.ChunkID)
				}
			}
			return nil
		},
	}
}

func newUploadCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			part, err := writer.CreateFormFile("file", filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			if batchID != "" {
				if err := writer.WriteField("batch_id", batchID); err != nil {
					return err
				}
			}
			if source != "" {
				if err := writer.WriteField("source", source); err != nil {
					return err
				}
			}
			if err := writer.Close(); err != nil {
				return err
			}

			resp, err := httpClient().Post(apiURL+"/v1/documents", writer.FormDataContentType(), &body)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusAccepted {
				return apiError(resp)
			}

			var doc domain.Document
			if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}
			fmt.Printf("uploaded %s as document %s (source %s, batch %s)\n", doc.Filename, doc.ID, doc.SourceLabel, doc.BatchID)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source label for comparison queries (derived from filename when empty)")
	return cmd
}

func newBatchesCommand() *cobra.Command {
	batches := &cobra.Command{
		Use:   "batches",
		Short: "Manage document batches",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := httpClient().Get(apiURL + "/v1/batches")
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return apiError(resp)
			}

			var payload struct {
				Batches []domain.Batch `json:"batches"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Errorf("decode batches: %w", err)
			}
			for _, b := range payload.Batches {
				marker := " "
				if b.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %s\t%s\t%d documents\n", marker, b.ID, b.Name, b.DocCount)
			}
			return nil
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{
				"name":        args[0],
				"description": description,
			})
			if err != nil {
				return err
			}

			resp, err := httpClient().Post(apiURL+"/v1/batches", "application/json", bytes.NewReader(payload))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusCreated {
				return apiError(resp)
			}

			var batch domain.Batch
			if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
				return fmt.Errorf("decode batch: %w", err)
			}
			fmt.Printf("created batch %s (%s)\n", batch.ID, batch.Name)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "batch description")

	batches.AddCommand(list, create)
	return batches
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("api returned %s: %s", resp.Status, payload.Error)
	}
	return fmt.Errorf("api returned %s", resp.Status)
}
