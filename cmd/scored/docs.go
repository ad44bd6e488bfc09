package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/docs.
//
// @title           scored API
// @version         1.0
// @description     HTTP scoring endpoint for a causal language model.
//
// @BasePath  /
//
// @schemes http
