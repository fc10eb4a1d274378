// Package sheet reads test cases from an xlsx workbook and writes the
// annotated results back out as a styled workbook.
//
// The first row of the sheet names the columns; column order is free.
// Recognised columns map onto model.TestCase fields and everything else
// is carried through to the result workbook untouched.
package sheet
