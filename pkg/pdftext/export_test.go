package pdftext

var BuildRows = buildRows
