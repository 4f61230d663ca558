// Package mca implements Multiple Correspondence Analysis over a categorical table.
//
// The pipeline has two stages:
//
//  1. Build turns a table into its indicator (one-hot) matrix, row and column
//     masses and the chi-square standardized residual matrix
//     s_ij = (x_ij/N - r_i c_j) / sqrt(r_i c_j), with N = rows × fields.
//  2. Factorize takes a truncated SVD of the residuals and scales the singular
//     vectors into principal coordinates for rows (F = D_r^-1/2 U Σ) and
//     columns (G = D_c^-1/2 V Σ), so both live on the same biplot axes.
//
// Indicator columns are ordered by field declaration order, then by the
// field's declared level order, or lexicographic byte order when the field
// declares no levels. Only observed levels get a column.
//
// Everything here is a pure function of its inputs and performs no I/O; an
// Engine may be shared between goroutines as long as each call gets its own table.
package mca
