// Package catalog fetches bibliographic records for items being added to the
// loan registry. The records are copied into the item row once; the loan
// engine never calls the catalog.
package catalog
