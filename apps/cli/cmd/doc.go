// Package cmd implements the sheetspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the test cases of a workbook and write the verdicts
//   - reconcile: Reconcile a newman JSON report with its workbook
//   - build: Write the Postman collection for a workbook
//   - validate: Check workbooks and collections without executing them
//   - history: List recorded runs
//   - init: Create a config file and an example workbook
//   - version: Show sheetspec version information
//
// Flags fall back to SHEETSPEC_* environment variables and then to the
// .sheetspec.yaml config file.
package cmd
